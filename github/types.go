package github

import "time"

// User is the authenticated GitHub account.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
}

type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type IssueComment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type IssueEvent struct {
	ID        int64     `json:"id"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"created_at"`
}

type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type createRepoRequest struct {
	Name     string `json:"name"`
	AutoInit bool   `json:"auto_init"`
}

type commentRequest struct {
	Body string `json:"body"`
}
