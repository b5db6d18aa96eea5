package models

// PartnerUser is the display identity of a counterpart, assembled from the
// platform's user directory.
type PartnerUser struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Role  string `db:"role" json:"role"`
}

// PartnerProperty is a property linking the caller to a counterpart.
type PartnerProperty struct {
	ID    int64  `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
}

// Partner groups one valid counterpart with the properties relating the two
// sides. Landlords see their tenants, tenants see their landlords.
type Partner struct {
	Kind       string            `json:"kind"`
	User       PartnerUser       `json:"user"`
	Properties []PartnerProperty `json:"properties"`
}
