package domain

// Roles accepted at registration. Admins can delete records and read
// dashboard statistics; staff handle day-to-day sales and stock.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type User struct {
	ID        int64  `json:"id" db:"id"`
	Username  string `json:"username" db:"username"`
	Email     string `json:"email" db:"email"`
	Password  string `json:"password,omitempty" db:"password"`
	Role      string `json:"role" db:"role"`
	CreatedAt string `json:"created_at,omitempty" db:"created_at"`
}
