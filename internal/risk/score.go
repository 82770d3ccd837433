package risk

import (
	"strings"
)

// Component weights of the final score. They must sum to 1.
const (
	weightModel             = 0.50
	weightDevice            = 0.20
	weightInputValidation   = 0.05
	weightNetworkValidation = 0.10
	weightAppProfile        = 0.15
)

const validationPenalty = 100

// deviceRiskScale maps the device vendor's qualitative levels onto the
// numeric scale the composite formula uses. Unlisted levels score 0.
var deviceRiskScale = map[string]float64{
	"VERY_HIGH": 1000,
	"HIGH":      750,
	"MEDIUM":    500,
	"LOW":       300,
}

// carrierAliases folds rebranded carriers into one identity. Vodafone
// and Idea merged into Vi; alerts still report all three names.
var carrierAliases = map[string]string{
	"vi":       "vi",
	"vodafone": "vi",
	"idea":     "vi",
}

// Input carries everything the composite score is computed from.
type Input struct {
	// ModelScore is the score returned by the external risk model.
	ModelScore float64 `json:"model_score"`
	// DeviceRiskLevel is the vendor's qualitative device verdict.
	DeviceRiskLevel string `json:"device_risk_level"`

	ClaimedName   string `json:"claimed_name"`
	AlternateName string `json:"alternate_name"`

	ClaimedCarrier  string `json:"claimed_carrier"`
	DetectedCarrier string `json:"detected_carrier"`

	// AccountApps are the apps the applicant's accounts imply should
	// be on the device; InstalledApps is what the device reported.
	AccountApps   []string `json:"account_apps"`
	InstalledApps []string `json:"installed_apps"`
}

// Breakdown is the composite score with its per-component parts.
type Breakdown struct {
	ModelScore             float64 `json:"model_score"`
	DeviceScore            float64 `json:"device_score"`
	InputValidationScore   float64 `json:"input_validation_score"`
	NetworkValidationScore float64 `json:"network_validation_score"`
	AppProfileScore        float64 `json:"app_profile_score"`
	FinalScore             float64 `json:"final_score"`
}

// Compute derives the composite risk score. Higher is riskier. The
// final score is a weighted sum and is deliberately not clamped.
func Compute(in Input) Breakdown {
	b := Breakdown{
		ModelScore:             in.ModelScore,
		DeviceScore:            deviceRiskScale[strings.ToUpper(strings.TrimSpace(in.DeviceRiskLevel))],
		InputValidationScore:   inputValidationScore(in.ClaimedName, in.AlternateName),
		NetworkValidationScore: networkValidationScore(in.ClaimedCarrier, in.DetectedCarrier),
		AppProfileScore:        appProfileScore(in.AccountApps, in.InstalledApps),
	}
	b.FinalScore = weightModel*b.ModelScore +
		weightDevice*b.DeviceScore +
		weightInputValidation*b.InputValidationScore +
		weightNetworkValidation*b.NetworkValidationScore +
		weightAppProfile*b.AppProfileScore
	return b
}

// inputValidationScore penalizes applications whose claimed name does
// not appear inside the name found through alternate data.
func inputValidationScore(claimed, alternate string) float64 {
	if claimed == "" || alternate == "" {
		return 0
	}
	if strings.Contains(strings.ToLower(alternate), strings.ToLower(claimed)) {
		return 0
	}
	return validationPenalty
}

// networkValidationScore penalizes a carrier mismatch. The carrier the
// device reports counts as a match when it appears inside the carrier
// name from alternate data after alias folding; alternate sources tend
// to return full legal names ("Bharti Airtel"). Missing data on either
// side is not a mismatch.
func networkValidationScore(claimed, detected string) float64 {
	if claimed == "" || detected == "" {
		return 0
	}
	if strings.Contains(normalizeCarrier(detected), normalizeCarrier(claimed)) {
		return 0
	}
	return validationPenalty
}

func normalizeCarrier(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := carrierAliases[n]; ok {
		return alias
	}
	// Legal names embed the brand ("Vodafone Idea Ltd").
	for _, brand := range []string{"vodafone", "idea"} {
		if strings.Contains(n, brand) {
			return carrierAliases[brand]
		}
	}
	return n
}

// appProfileScore splits a 1000-point budget evenly across the
// account-implied apps and charges the share of every app missing from
// the device.
func appProfileScore(accountApps, installedApps []string) float64 {
	installed := make(map[string]struct{}, len(installedApps))
	for _, app := range installedApps {
		installed[strings.ToLower(strings.TrimSpace(app))] = struct{}{}
	}
	// Account lists repeat apps across products; each app is budgeted
	// once.
	expected := make(map[string]struct{}, len(accountApps))
	for _, app := range accountApps {
		expected[strings.ToLower(strings.TrimSpace(app))] = struct{}{}
	}
	if len(expected) == 0 {
		return 0
	}
	perApp := 1000.0 / float64(len(expected))
	score := 0.0
	for app := range expected {
		if _, ok := installed[app]; !ok {
			score += perApp
		}
	}
	return score
}
