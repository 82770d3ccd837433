package risk

import (
	"math"
	"testing"
)

func TestComputeCompositeScore(t *testing.T) {
	// Model 700, VERY_HIGH device, matching identity and carrier,
	// one of four account apps missing (250 penalty).
	in := Input{
		ModelScore:      700,
		DeviceRiskLevel: "VERY_HIGH",
		ClaimedName:     "Rahul Sharma",
		AlternateName:   "Rahul Sharma S/O Prakash Sharma",
		ClaimedCarrier:  "Airtel",
		DetectedCarrier: "Airtel",
		AccountApps:     []string{"gpay", "phonepe", "paytm", "cred"},
		InstalledApps:   []string{"gpay", "phonepe", "paytm"},
	}

	b := Compute(in)

	if b.DeviceScore != 1000 {
		t.Errorf("device score = %v, want 1000", b.DeviceScore)
	}
	if b.InputValidationScore != 0 {
		t.Errorf("input validation = %v, want 0", b.InputValidationScore)
	}
	if b.NetworkValidationScore != 0 {
		t.Errorf("network validation = %v, want 0", b.NetworkValidationScore)
	}
	if b.AppProfileScore != 250 {
		t.Errorf("app profile = %v, want 250", b.AppProfileScore)
	}
	// 0.5*700 + 0.2*1000 + 0.15*250
	if math.Abs(b.FinalScore-587.5) > 1e-9 {
		t.Errorf("final score = %v, want 587.5", b.FinalScore)
	}
}

func TestDeviceRiskScale(t *testing.T) {
	tests := []struct {
		level string
		want  float64
	}{
		{"VERY_HIGH", 1000},
		{"HIGH", 750},
		{"MEDIUM", 500},
		{"LOW", 300},
		{"low", 300},
		{" medium ", 500},
		{"UNKNOWN", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := Compute(Input{DeviceRiskLevel: tt.level}).DeviceScore; got != tt.want {
			t.Errorf("device level %q = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestInputValidation(t *testing.T) {
	tests := []struct {
		name      string
		claimed   string
		alternate string
		want      float64
	}{
		{"exact match", "Rahul Sharma", "Rahul Sharma", 0},
		{"substring match", "Rahul", "Rahul Sharma", 0},
		{"case insensitive", "rahul sharma", "RAHUL SHARMA", 0},
		{"mismatch", "Rahul Sharma", "Amit Verma", validationPenalty},
		{"missing alternate", "Rahul Sharma", "", 0},
		{"missing claimed", "", "Rahul Sharma", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inputValidationScore(tt.claimed, tt.alternate)
			if got != tt.want {
				t.Errorf("inputValidationScore(%q, %q) = %v, want %v",
					tt.claimed, tt.alternate, got, tt.want)
			}
		})
	}
}

func TestNetworkValidationCarrierAliases(t *testing.T) {
	tests := []struct {
		claimed  string
		detected string
		want     float64
	}{
		{"Airtel", "Airtel", 0},
		{"Airtel", "Bharti Airtel", 0},
		{"Jio", "Reliance Jio Infocomm", 0},
		{"Vi", "Vodafone", 0},
		{"Vi", "Vodafone Idea Ltd", 0},
		{"Vodafone", "Idea", 0},
		{"Idea", "Vi", 0},
		{"Jio", "Airtel", validationPenalty},
		{"Airtel", "Vi", validationPenalty},
		{"Bharti Airtel", "Airtel", validationPenalty},
		{"", "Airtel", 0},
		{"Airtel", "", 0},
	}
	for _, tt := range tests {
		got := networkValidationScore(tt.claimed, tt.detected)
		if got != tt.want {
			t.Errorf("networkValidationScore(%q, %q) = %v, want %v",
				tt.claimed, tt.detected, got, tt.want)
		}
	}
}

func TestAppProfileScore(t *testing.T) {
	if got := appProfileScore(nil, nil); got != 0 {
		t.Errorf("no account apps = %v, want 0", got)
	}
	if got := appProfileScore([]string{"gpay"}, []string{"GPay"}); got != 0 {
		t.Errorf("case-insensitive install match = %v, want 0", got)
	}
	if got := appProfileScore([]string{"gpay", "cred"}, nil); got != 1000 {
		t.Errorf("all missing = %v, want 1000", got)
	}
	got := appProfileScore([]string{"a", "b", "c"}, []string{"a"})
	want := 2000.0 / 3.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("two of three missing = %v, want %v", got, want)
	}
	// Repeated account entries budget each app once.
	if got := appProfileScore([]string{"gpay", "gpay", "cred", "cred"}, []string{"gpay"}); got != 500 {
		t.Errorf("duplicated account apps = %v, want 500", got)
	}
}

func TestFinalScoreNotClamped(t *testing.T) {
	in := Input{
		ModelScore:      1000,
		DeviceRiskLevel: "VERY_HIGH",
		ClaimedName:     "A",
		AlternateName:   "B",
		ClaimedCarrier:  "Jio",
		DetectedCarrier: "Airtel",
		AccountApps:     []string{"gpay"},
	}
	b := Compute(in)
	// 500 + 200 + 5 + 10 + 150
	if math.Abs(b.FinalScore-865.0) > 1e-9 {
		t.Errorf("final score = %v, want 865", b.FinalScore)
	}
}
