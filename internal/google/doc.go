// Package google provides the credential provider for Gmail access.
//
// Two sources are supported: a service account impersonating a mailbox
// (ServiceAccountSource) and an installed-app OAuth client with a token
// persisted on disk (UserSource). A Provider wraps either one and lazily
// builds a single authenticated *http.Client that is shared by every
// retrieval call until it is invalidated after a refresh failure.
//
// Any failure to obtain credentials is reported as *CredentialError.
package google
