package enquiry

import (
	"time"

	"crm-service/internal/counselor"

	"github.com/uptrace/bun"
)

// Enquiry is a prospective-client lead. It is created unclaimed and
// transitions exactly once to claimed, owned by a single counselor.
// Invariant: Claimed is false if and only if CounselorID is nil.
type Enquiry struct {
	bun.BaseModel `bun:"table:enquiries,alias:e"`

	ID             int       `bun:"id,pk,autoincrement" json:"id"`
	Name           string    `bun:"name,notnull" json:"name"`
	Email          string    `bun:"email,notnull" json:"email"`
	CourseInterest string    `bun:"course_interest,notnull" json:"courseInterest"`
	Claimed        bool      `bun:"claimed,notnull,default:false" json:"claimed"`
	CounselorID    *int      `bun:"counselor_id" json:"counselorId"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	Counselor *counselor.Counselor `bun:"rel:belongs-to,join:counselor_id=id" json:"counselor,omitempty"`
}

// SubmitRequest is the public enquiry submission body
type SubmitRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=100"`
	Email          string `json:"email" validate:"required,email"`
	CourseInterest string `json:"courseInterest" validate:"required"`
}

// EnquiryResponse wraps a single enquiry
type EnquiryResponse struct {
	Message string   `json:"message"`
	Enquiry *Enquiry `json:"enquiry"`
}

// ListResponse wraps an enquiry listing
type ListResponse struct {
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Enquiries []Enquiry `json:"enquiries"`
}

// ConflictResponse tells a losing claimer who won the lead
type ConflictResponse struct {
	Message string          `json:"message"`
	Enquiry ClaimedBySummary `json:"enquiry"`
}

type ClaimedBySummary struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Claimed   bool   `json:"claimed"`
	ClaimedBy *int   `json:"claimedBy"`
}
