package email

import (
	"sort"
	"strings"
)

// StaffMember is a sales contact quotes can be routed to.
type StaffMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Directory resolves sales contacts by email. Unknown emails fall back to the
// default inbox.
type Directory struct {
	members  map[string]StaffMember
	fallback StaffMember
}

// DefaultStaff is the built-in contact list.
var DefaultStaff = []StaffMember{
	{Name: "Sales Team", Email: "sales@example.com", Role: "sales"},
	{Name: "Embroidery Desk", Email: "embroidery@example.com", Role: "sales"},
	{Name: "Print Desk", Email: "print@example.com", Role: "sales"},
	{Name: "Customer Service", Email: "service@example.com", Role: "support"},
}

// NewDirectory indexes members. defaultEmail names the fallback contact.
func NewDirectory(members []StaffMember, defaultEmail string) *Directory {
	d := &Directory{members: make(map[string]StaffMember, len(members))}
	for _, m := range members {
		d.members[strings.ToLower(m.Email)] = m
	}
	if m, ok := d.members[strings.ToLower(defaultEmail)]; ok {
		d.fallback = m
	} else {
		d.fallback = StaffMember{Name: "Sales Team", Email: defaultEmail, Role: "sales"}
	}
	return d
}

// Resolve returns the member with email, or the fallback contact.
func (d *Directory) Resolve(email string) StaffMember {
	if m, ok := d.members[strings.ToLower(strings.TrimSpace(email))]; ok {
		return m
	}
	return d.fallback
}

// Members lists the directory ordered by name.
func (d *Directory) Members() []StaffMember {
	out := make([]StaffMember, 0, len(d.members))
	for _, m := range d.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
