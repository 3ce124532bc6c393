package ui

// AuthExpiredMsg signals that a request came back 401: the stored
// token is no longer accepted and the user must sign in again. Views
// emit it instead of rendering the error inline; the root model tears
// the session down and returns to the login view.
type AuthExpiredMsg struct{}
