// Package retrieval turns a Gmail search query into extracted emails and
// renders them for the agent or a terminal.
//
// A Retriever searches once, then fetches references in order until the
// requested number of emails has been extracted. Messages that fail to fetch
// are skipped; a failed search produces an empty result. Only credential
// failures are returned as errors.
//
// Rendering is separate from retrieval. Summary, Structured and Display all
// read the same Result:
//
//	res, err := retrieval.New(client, logger, retrieval.Options{}).Retrieve(ctx, query, 5, gmail.DefaultPreviewChars)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(retrieval.Summary(res, false))
package retrieval
