package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auralabs/voicelink/internal/app"
	"github.com/auralabs/voicelink/internal/app/token"
	"github.com/auralabs/voicelink/internal/domain"
)

// CallController exposes the control plane: call sessions, rooms and
// relay-token issuance. Identities in request bodies arrive already
// authenticated by the external identity layer and are trusted verbatim.
type CallController struct {
	Directory *app.Directory
	Registry  *app.Registry
	Tokens    *token.Issuer
}

// POST /call/start {callerId, calleeId}
func (ctl *CallController) StartCall(c *gin.Context) {
	var req struct {
		CallerID string `json:"callerId"`
		CalleeID string `json:"calleeId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CallerID == "" || req.CalleeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "callerId and calleeId required"})
		return
	}

	id := ctl.Directory.CreateSession(domain.UserID(req.CallerID), domain.UserID(req.CalleeID))
	c.JSON(http.StatusOK, gin.H{
		"sessionId": id,
		"callerId":  req.CallerID,
		"calleeId":  req.CalleeID,
		"message":   "Call session created",
	})
}

// POST /call/end {sessionId}
func (ctl *CallController) EndCall(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId required"})
		return
	}

	ctl.Directory.EndSession(domain.SessionID(req.SessionID))
	c.JSON(http.StatusOK, gin.H{
		"sessionId": req.SessionID,
		"message":   "Call session ended",
	})
}

// POST /call/room/create {creatorId, roomName}
func (ctl *CallController) CreateRoom(c *gin.Context) {
	var req struct {
		CreatorID string `json:"creatorId"`
		RoomName  string `json:"roomName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CreatorID == "" || req.RoomName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "creatorId and roomName required"})
		return
	}
	name := req.RoomName
	if len(name) > domain.MaxRoomNameLen {
		name = name[:domain.MaxRoomNameLen]
	}

	id := ctl.Directory.CreateRoom(domain.UserID(req.CreatorID), domain.RoomName(name))
	c.JSON(http.StatusOK, gin.H{
		"id":           id,
		"name":         name,
		"creatorId":    req.CreatorID,
		"participants": 1,
		"message":      "Room created",
	})
}

// GET /call/room/list
func (ctl *CallController) ListRooms(c *gin.Context) {
	snaps := ctl.Directory.ListRooms()
	rooms := make([]gin.H, 0, len(snaps))
	for _, r := range snaps {
		rooms = append(rooms, gin.H{
			"id":           r.ID,
			"name":         r.Name,
			"participants": r.Count,
		})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GET /call/room/:id
func (ctl *CallController) GetRoom(c *gin.Context) {
	snap, ok := ctl.Directory.GetRoom(domain.RoomID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": snap})
}

// POST /call/room/join {userId, roomId}
func (ctl *CallController) JoinRoom(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.RoomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and roomId required"})
		return
	}

	roomID := domain.RoomID(req.RoomID)
	if !ctl.Directory.JoinRoom(domain.UserID(req.UserID), roomID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	snap, _ := ctl.Directory.GetRoom(roomID)
	c.JSON(http.StatusOK, gin.H{
		"roomId":       snap.ID,
		"roomName":     snap.Name,
		"participants": snap.Count,
		"userId":       req.UserID,
		"message":      "Joined room",
	})
}

// POST /call/room/leave {userId, roomId}
func (ctl *CallController) LeaveRoom(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.RoomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and roomId required"})
		return
	}

	roomID := domain.RoomID(req.RoomID)
	if _, ok := ctl.Directory.GetRoom(roomID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	if !ctl.Directory.LeaveRoom(domain.UserID(req.UserID), roomID) {
		c.JSON(http.StatusOK, gin.H{
			"roomId":  req.RoomID,
			"message": "Room deleted (no participants left)",
		})
		return
	}

	snap, _ := ctl.Directory.GetRoom(roomID)
	c.JSON(http.StatusOK, gin.H{
		"roomId":       snap.ID,
		"roomName":     snap.Name,
		"participants": snap.Count,
		"userId":       req.UserID,
		"message":      "Left room",
	})
}

// POST /call/token {userId, sessionId|roomId}
// Issues a short-lived, single-use relay token bound to a scope the user
// is actually a party of. The /ws/voip upgrade consumes it.
func (ctl *CallController) IssueToken(c *gin.Context) {
	var req struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId,omitempty"`
		RoomID    string `json:"roomId,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}

	uid := domain.UserID(req.UserID)
	b := domain.Binding{UserID: uid}
	switch {
	case req.SessionID != "":
		sess, ok := ctl.Directory.GetSession(domain.SessionID(req.SessionID))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		if !sess.Party(uid) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a party of this session"})
			return
		}
		b.Kind = domain.BindSession
		b.SessionID = sess.ID
	case req.RoomID != "":
		roomID := domain.RoomID(req.RoomID)
		if _, ok := ctl.Directory.GetRoom(roomID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		if !ctl.Directory.IsParticipant(uid, roomID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this room"})
			return
		}
		b.Kind = domain.BindRoom
		b.RoomID = roomID
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId or roomId required"})
		return
	}

	tok, exp := ctl.Tokens.Issue(b)
	c.JSON(http.StatusOK, gin.H{
		"token":     tok,
		"expiresAt": exp,
	})
}

// GET /healthz
func (ctl *CallController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connections": ctl.Registry.Len(),
		"rooms":       ctl.Directory.RoomCount(),
	})
}
