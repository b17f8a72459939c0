package domain

import "time"

// Audit holds creation and modification metadata. It is filled in by the
// unit of work when changes are saved, never by domain code.
type Audit struct {
	CreatedAt      time.Time `json:"createdAt"`
	CreatedBy      string    `json:"createdBy,omitempty"`
	LastModified   time.Time `json:"lastModified"`
	LastModifiedBy string    `json:"lastModifiedBy,omitempty"`
}

func (a *Audit) IsNew() bool {
	return a.CreatedAt.IsZero()
}

func (a *Audit) StampCreated(at time.Time, by string) {
	a.CreatedAt = at
	a.CreatedBy = by
}

func (a *Audit) StampModified(at time.Time, by string) {
	a.LastModified = at
	a.LastModifiedBy = by
}
