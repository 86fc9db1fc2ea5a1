package domain

import "time"

type NotificationType string

const (
	TypeDeadlineReminder NotificationType = "DEADLINE_REMINDER"
	TypeTaskAssigned     NotificationType = "TASK_ASSIGNED"
	TypeTaskUpdated      NotificationType = "TASK_UPDATED"
	TypeTaskComment      NotificationType = "TASK_COMMENT"
	TypeMention          NotificationType = "MENTION"
	TypeProjectInvite    NotificationType = "PROJECT_INVITE"
	TypeChatMessage      NotificationType = "CHAT_MESSAGE"
)

type NotificationStatus string

const (
	StatusUnread NotificationStatus = "unread"
	StatusRead   NotificationStatus = "read"
)

type Notification struct {
	ID           string             `json:"id" db:"id"`
	RecipientID  string             `json:"recipient_id" db:"recipient_id"`
	Type         NotificationType   `json:"type" db:"type"`
	ReferenceID  string             `json:"reference_id" db:"reference_id"`
	Title        string             `json:"title" db:"title"`
	Message      string             `json:"message" db:"message"`
	Link         string             `json:"link" db:"link"`
	Status       NotificationStatus `json:"status" db:"status"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	Emailed      bool               `json:"emailed" db:"emailed"`
	SenderName   string             `json:"sender_name" db:"sender_name"`
	SenderAvatar string             `json:"sender_avatar" db:"sender_avatar"`
}

// Payload is what gets pushed on a recipient's realtime channel.
type Payload struct {
	ID           string             `json:"id"`
	Type         NotificationType   `json:"type"`
	Title        string             `json:"title"`
	Message      string             `json:"message"`
	Status       NotificationStatus `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
	ReferenceID  string             `json:"referenceId"`
	Link         string             `json:"link"`
	Icon         string             `json:"icon"`
	SenderName   string             `json:"senderName"`
	SenderAvatar string             `json:"senderAvatar"`
}

func (n Notification) Payload() Payload {
	return Payload{
		ID:           n.ID,
		Type:         n.Type,
		Title:        n.Title,
		Message:      n.Message,
		Status:       n.Status,
		CreatedAt:    n.CreatedAt,
		ReferenceID:  n.ReferenceID,
		Link:         n.Link,
		Icon:         IconFor(n.Type),
		SenderName:   n.SenderName,
		SenderAvatar: n.SenderAvatar,
	}
}

const DefaultIcon = "bi-bell"

var icons = map[NotificationType]string{
	TypeDeadlineReminder: "bi-alarm",
	TypeTaskAssigned:     "bi-person-check",
	TypeTaskUpdated:      "bi-pencil-square",
	TypeTaskComment:      "bi-chat-left-text",
	TypeMention:          "bi-at",
	TypeProjectInvite:    "bi-envelope-open",
	TypeChatMessage:      "bi-chat-dots",
}

func IconFor(t NotificationType) string {
	if icon, ok := icons[t]; ok {
		return icon
	}
	return DefaultIcon
}
