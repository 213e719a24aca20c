package domain

// Identity says who a participant is: an account or an anonymous CPF holder.
// The set of implementations is closed to this package.
type Identity interface {
	isIdentity()
}

// AccountIdentity is an authenticated user.
type AccountIdentity struct {
	UserID string
}

// AnonymousIdentity is a participant without an account, keyed by CPF.
type AnonymousIdentity struct {
	CPF  string // digits only
	Name string
}

func (AccountIdentity) isIdentity()   {}
func (AnonymousIdentity) isIdentity() {}
