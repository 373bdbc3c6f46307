package domain

import "time"

// DefaultResolutionMessage is stored when a complaint is resolved without an
// explicit message.
const DefaultResolutionMessage = "We have reviewed your complaint and resolved the issue."

// ResolutionPresets are suggested resolution messages offered to admins.
// They are plain strings: resolving accepts any non-empty text.
var ResolutionPresets = []string{
	"We have issued a partial refund for the affected items.",
	"We have issued a full refund for your order.",
	"We have added a coupon to your account for your next order.",
	"We have arranged a free reorder of your items.",
}

// Complaint is an issue report filed by a submitter, optionally tied to an
// order. Text, category, submitter, order and creation time never change
// after insert; only Status and AdminResponse are mutated, and only through a
// status transition.
//
// Fields:
//   - ID: store-assigned, monotonically increasing identifier.
//   - SubmitterID: identity of the user who filed the complaint.
//   - OrderID: optional order context.
//   - Text: free-form description.
//   - Category: classifier label, never empty.
//   - Status: lifecycle stage, Pending at creation.
//   - AdminResponse: resolution message; set iff Status is Resolved.
//   - CreatedAt: creation instant, used for date filtering and grouping.
//   - UpdatedAt: last mutation instant, used for ETags.
type Complaint struct {
	ID            uint64    `json:"id"                       bson:"_id"                      gorm:"primaryKey;autoIncrement"`
	SubmitterID   string    `json:"submitter_id"             bson:"submitter_id"             gorm:"type:varchar(64);not null;index:idx_complaints_submitter"`
	OrderID       *string   `json:"order_id,omitempty"       bson:"order_id,omitempty"       gorm:"type:varchar(64)"`
	Text          string    `json:"text"                     bson:"text"                     gorm:"type:text;not null"`
	Category      Category  `json:"category"                 bson:"category"                 gorm:"type:varchar(32);not null;index:idx_complaints_category;check:category IN ('Delivery Issue','Food Quality Issue','Wrong / Missing Item','Payment / Refund Issue','App / Technical Issue')"`
	Status        Status    `json:"status"                   bson:"status"                   gorm:"type:varchar(16);not null;default:'Pending';index:idx_complaints_status;check:status IN ('Pending','Verified','Resolved','Not Responded')"`
	AdminResponse *string   `json:"admin_response,omitempty" bson:"admin_response,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"timestamp"                bson:"created_at"               gorm:"not null;index:idx_complaints_created"`
	UpdatedAt     time.Time `json:"updated_at"               bson:"updated_at"`
}

// TableName returns the database table name for Complaint.
func (Complaint) TableName() string { return "complaints" }

// Resolved reports whether the complaint is in the terminal state.
func (c *Complaint) Resolved() bool { return c.Status == StatusResolved }

// NewComplaint carries the fields supplied at creation time.
type NewComplaint struct {
	SubmitterID string
	OrderID     *string
	Text        string
	Category    Category
}

// StatusEvent is one entry of a complaint's append-only transition history:
// who moved it, from which status to which, with what message, and when.
type StatusEvent struct {
	ID          uint64    `json:"id"                bson:"_id"               gorm:"primaryKey;autoIncrement"`
	ComplaintID uint64    `json:"complaint_id"      bson:"complaint_id"      gorm:"not null;index:idx_status_events_complaint"`
	ActorID     string    `json:"actor_id"          bson:"actor_id"          gorm:"type:varchar(64);not null"`
	From        Status    `json:"from"              bson:"from"              gorm:"column:from_status;type:varchar(16);not null"`
	To          Status    `json:"to"                bson:"to"                gorm:"column:to_status;type:varchar(16);not null"`
	Message     *string   `json:"message,omitempty" bson:"message,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"        bson:"created_at"        gorm:"not null"`

	// Complaint is the audited record. Complaints are never deleted, so
	// deletes are restricted.
	Complaint Complaint `json:"-" bson:"-" gorm:"foreignKey:ComplaintID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for StatusEvent.
func (StatusEvent) TableName() string { return "status_events" }

// StatusUpdate is a validated transition handed to the store.
type StatusUpdate struct {
	ID       uint64
	ActorID  string
	To       Status
	Response *string
}
