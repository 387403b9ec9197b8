package counselor

import (
	"time"

	"github.com/uptrace/bun"
)

// Counselor is an employee who can view the shared lead pool and claim leads.
// The password hash is never serialized.
type Counselor struct {
	bun.BaseModel `bun:"table:counselors,alias:c"`

	ID        int       `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	Password  string    `bun:"password,notnull" json:"-"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}
