package model

// MessageRef is an opaque Gmail message id as returned by the list endpoint.
type MessageRef string

// PageToken is an opaque continuation cursor. Empty means no more results.
type PageToken string

// Page is one response of the list endpoint.
type Page struct {
	Refs          []MessageRef
	NextPageToken PageToken
}

// SenderCount is one row of a ranked result.
type SenderCount struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

// Record ties a message to the normalized sender it resolved to. A run keeps
// these so a follow-up action (trash) can target the messages of a sender.
type Record struct {
	Ref     MessageRef
	Address string
}

// TrashReport summarizes a bulk trash action. Failures do not stop the batch.
type TrashReport struct {
	Requested int
	Trashed   []MessageRef
	Failed    map[MessageRef]error
}
