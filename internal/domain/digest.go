package domain

const MissingMessage = "(no message)"

type DigestEntry struct {
	Icon    string `json:"icon"`
	Message string `json:"message"`
	Link    string `json:"link"`
}

// Digest is the structured body of one summary email.
type Digest struct {
	Recipient User          `json:"recipient"`
	Entries   []DigestEntry `json:"entries"`
}

func NewDigestEntry(n Notification) DigestEntry {
	msg := n.Message
	if msg == "" {
		msg = MissingMessage
	}
	return DigestEntry{Icon: IconFor(n.Type), Message: msg, Link: n.Link}
}
