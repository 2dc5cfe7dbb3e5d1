package model

type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type MedicalProfile struct {
	BloodGroup  string   `json:"bloodGroup"`
	Allergies   []string `json:"allergies"`
	Conditions  []string `json:"conditions"`
	Medications []string `json:"medications"`
}

type AppSettings struct {
	Notifications bool   `json:"notifications"`
	OfflineMode   bool   `json:"offlineMode"`
	Theme         string `json:"theme"`
}

type PrivacyFlags struct {
	ShareLocation       bool `json:"shareLocation"`
	VisibleToResponders bool `json:"visibleToResponders"`
	DataUsageAnalytics  bool `json:"dataUsageAnalytics"`
}

type Account struct {
	ID         string         `json:"id"`
	Handle     string         `json:"handle"`
	SecretHash string         `json:"secretHash,omitempty"`
	Name       string         `json:"name"`
	Role       string         `json:"role"`
	Contacts   []Contact      `json:"contacts"`
	Medical    MedicalProfile `json:"medical"`
	Settings   AppSettings    `json:"settings"`
	Privacy    PrivacyFlags   `json:"privacy"`
	CreatedAt  int64          `json:"createdAt"`
	UpdatedAt  int64          `json:"updatedAt"`
}

// Session is the locally persisted record of which Account is logged in.
// At most one exists per running instance; it survives a restart.
type Session struct {
	Account   Account `json:"account"`
	Token     string  `json:"token"`
	CreatedAt int64   `json:"createdAt"`
}

type MessageStatus string

const (
	MessageSent       MessageStatus = "sent"
	MessageDelivered  MessageStatus = "delivered"
	MessageMeshQueued MessageStatus = "mesh-queued"
)

// Terminal reports whether no further delivery transition is valid.
func (s MessageStatus) Terminal() bool {
	return s == MessageSent || s == MessageDelivered
}

type Message struct {
	ID         string        `json:"id"`
	SenderID   string        `json:"senderId"`
	SenderName string        `json:"senderName"`
	Text       string        `json:"text"`
	Timestamp  int64         `json:"timestamp"`
	Status     MessageStatus `json:"status"`
}

type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

type AlertStatus string

const (
	AlertActive     AlertStatus = "active"
	AlertResolved   AlertStatus = "resolved"
	AlertFalseAlarm AlertStatus = "false-alarm"
)

type SOSAlert struct {
	ID             string        `json:"id"`
	UserID         string        `json:"userId"`
	UserName       string        `json:"userName"`
	Lat            float64       `json:"lat"`
	Lng            float64       `json:"lng"`
	Timestamp      int64         `json:"timestamp"`
	Priority       AlertPriority `json:"priority"`
	Details        string        `json:"details"`
	Assessment     string        `json:"assessment,omitempty"`
	Category       string        `json:"category,omitempty"`
	SignalStrength int           `json:"signalStrength"`
	Status         AlertStatus   `json:"status"`
	ResolvedAt     int64         `json:"resolvedAt,omitempty"`
}

type Broadcast struct {
	ID        string `json:"id"`
	Authority string `json:"authority"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type Shelter struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	Capacity         int     `json:"capacity"`
	CurrentOccupancy int     `json:"currentOccupancy"`
}

type FirstAidGuide struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Category    string   `json:"category"`
}
