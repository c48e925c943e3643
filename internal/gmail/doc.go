// Package gmail searches a Gmail mailbox for transaction receipts and turns
// the fetched messages into plain text.
//
// The package has three parts:
//   - Query building: BuildQuery and BuildReceiptQuery render a date window,
//     the textual forms of an amount and merchant keywords into Gmail search
//     syntax.
//   - Client: Search and Fetch wrap users.messages.list and users.messages.get
//     with a per-call timeout and bounded retries of transient failures.
//   - Extraction: PartFromPayload converts the API payload into a Part tree,
//     Extract picks one text body (HTML preferred) and Assemble produces an
//     ExtractedEmail.
//
// Example usage:
//
//	client := gmail.NewClient(provider, gmail.Options{}, logger)
//
//	query, err := gmail.BuildQuery(date, amount, []string{"Amazon"}, 3)
//	if err != nil {
//	    return err
//	}
//	refs, err := client.Search(ctx, query, 10)
//	if err != nil {
//	    return err
//	}
//	for _, ref := range refs {
//	    msg, err := client.Fetch(ctx, ref)
//	    if err != nil {
//	        continue
//	    }
//	    email := gmail.Assemble(msg, gmail.DefaultPreviewChars)
//	    fmt.Println(email.Subject, email.Body)
//	}
package gmail
