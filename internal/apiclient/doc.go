// Package apiclient is the single HTTP gateway to the HRIS backend.
//
// Every call goes through Client, which resolves the path (bare resources
// live under /api/v1, rbac endpoints under /api), attaches the session's
// access token as a bearer credential, and unwraps the backend's
// {ok|success, data, error} envelope.
//
// A 401 on anything other than login, register or refresh triggers one
// silent refresh. If the refresh succeeds the request is replayed exactly
// once; otherwise the session is cleared and the Navigator is sent to
// /login?next=<current location>. A request never refreshes more than once.
//
// Failures come back as *Error, classified by status and matched with
// errors.Is against ErrUnauthorized, ErrForbidden and ErrValidation.
// Transport failures are returned wrapped and unclassified.
package apiclient
