package handler

import (
	"net/http"

	"hzpresence/internal/pkg/resp"
)

// OnlineUsersOutput is the body of GET /api/presence.
type OnlineUsersOutput struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// HandleOnlineUsers returns the identities currently registered as online.
func HandleOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users := deps.Hub.Online()
		if users == nil {
			users = []string{}
		}

		resp.RespondSuccess(w, r, OnlineUsersOutput{
			Users: users,
			Count: len(users),
		})
	}
}
