package google

import gmail "google.golang.org/api/gmail/v1"

// GmailScopes are the OAuth scopes requested for mailbox access. Receipt
// lookup only reads mail.
var GmailScopes = []string{
	gmail.GmailReadonlyScope,
}
