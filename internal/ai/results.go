package ai

import "hillshield/internal/model"

// Every collaborator call returns a tagged result instead of a raw blob.
// Fallback marks a canned value produced because the collaborator was
// unreachable or answered garbage; callers treat it as lower confidence,
// never as an error.

type TriageResult struct {
	Priority  model.AlertPriority `json:"priority"`
	Reasoning string              `json:"reasoning"`
	Fallback  bool                `json:"fallback"`
}

type AdviceResult struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

type VoiceAction string

const (
	ActionNavigateMap      VoiceAction = "NAVIGATE_MAP"
	ActionNavigateChat     VoiceAction = "NAVIGATE_CHAT"
	ActionNavigateDoctor   VoiceAction = "NAVIGATE_DOCTOR"
	ActionNavigateFirstAid VoiceAction = "NAVIGATE_FIRST_AID"
	ActionNavigateProfile  VoiceAction = "NAVIGATE_PROFILE"
	ActionScanMedicine     VoiceAction = "SCAN_MEDICINE"
	ActionTriggerSOS       VoiceAction = "TRIGGER_SOS"
	ActionMedicalQuery     VoiceAction = "MEDICAL_QUERY"
	ActionFirstAidQuery    VoiceAction = "FIRST_AID_QUERY"
	ActionUnknown          VoiceAction = "UNKNOWN"
)

func (a VoiceAction) Valid() bool {
	switch a {
	case ActionNavigateMap, ActionNavigateChat, ActionNavigateDoctor,
		ActionNavigateFirstAid, ActionNavigateProfile, ActionScanMedicine,
		ActionTriggerSOS, ActionMedicalQuery, ActionFirstAidQuery, ActionUnknown:
		return true
	}
	return false
}

type VoiceIntent struct {
	Action   VoiceAction `json:"action"`
	Params   string      `json:"params,omitempty"`
	Fallback bool        `json:"fallback"`
}

type MedicineResult struct {
	Name          string `json:"name"`
	Generic       string `json:"generic"`
	Usage         string `json:"usage"`
	Dosage        string `json:"dosage"`
	Warnings      string `json:"warnings"`
	RiskLevel     int    `json:"riskLevel"`     // 1-4
	PriorityScore int    `json:"priorityScore"` // 0-10
	Disclaimer    string `json:"disclaimer"`
	Fallback      bool   `json:"fallback"`
}

type ReliabilityResult struct {
	Score    int    `json:"score"` // 0-100
	Tip      string `json:"tip"`
	Fallback bool   `json:"fallback"`
}

// Canned values returned whenever the collaborator fails. The Bangla copy
// is part of the product, not placeholder text.
func fallbackTriage() TriageResult {
	return TriageResult{Priority: model.PriorityHigh, Reasoning: "জরুরি প্রটোকল সক্রিয় করা হয়েছে।", Fallback: true}
}

func fallbackAdvice() AdviceResult {
	return AdviceResult{
		Text:     "দুঃখিত, বর্তমানে টেকনিক্যাল সমস্যার কারণে আমি বিস্তারিত পরামর্শ দিতে পারছি না। গুরুতর সমস্যায় দ্রুত নিকটস্থ হাসপাতালে যোগাযোগ করুন। আমরা আপনার দ্রুত আরোগ্য কামনা করি।",
		Fallback: true,
	}
}

func fallbackMentalSupport() AdviceResult {
	return AdviceResult{Text: "ধীরগতিতে শ্বাস নিন। আপনি একা নন, আমরা আপনার পাশে আছি।", Fallback: true}
}

func fallbackVoiceIntent() VoiceIntent {
	return VoiceIntent{Action: ActionUnknown, Fallback: true}
}

func fallbackMedicine() MedicineResult {
	return MedicineResult{
		Name:          "অজানা ওষুধ",
		Usage:         "চিত্র বিশ্লেষণ ব্যর্থ।",
		Dosage:        "ব্যবহারের আগে একজন ফার্মাসিস্ট বা চিকিৎসকের পরামর্শ নিন।",
		Warnings:      "অচেনা ওষুধ সেবন করবেন না।",
		RiskLevel:     2,
		PriorityScore: 5,
		Disclaimer:    "এটি চিকিৎসা পরামর্শ নয়।",
		Fallback:      true,
	}
}

func fallbackReliability() ReliabilityResult {
	return ReliabilityResult{Score: 75, Tip: "অন্যদের কাছাকাছি থাকুন।", Fallback: true}
}
