package chathub

// Session attribute keys set at handshake and refreshed on CONNECT.
const (
	AttrToken  = "token"
	AttrUserID = "userId"
)

// Attributes is the per-connection attribute bag. It is only touched by
// the connection's read goroutine.
type Attributes map[string]interface{}

func (a Attributes) Token() (string, bool) {
	t, ok := a[AttrToken].(string)
	return t, ok && t != ""
}

// UserID returns the authenticated user, nil for guests.
func (a Attributes) UserID() *uint {
	id, ok := a[AttrUserID].(uint)
	if !ok {
		return nil
	}
	return &id
}
