package handlers

import (
  "net/http"
  "sync"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/requestdata"
  "github.com/autonoma/autonoma-backend/internal/sse"
)

type SSEHandler struct {
  log       *logger.Logger
  hub       *sse.SSEHub

  mu        sync.Mutex
  clients   map[uuid.UUID]*sse.SSEClient
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
  return &SSEHandler{
    log:     log.With("handler", "SSEHandler"),
    hub:     hub,
    clients: make(map[uuid.UUID]*sse.SSEClient),
  }
}

// SSEStream opens the event stream. The client is auto-subscribed to
// its own user channel; the first message carries the client id so the
// frontend can manage extra subscriptions.
func (sh *SSEHandler) SSEStream(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
    return
  }

  client := sh.hub.NewSSEClient(rd.UserID)
  sh.hub.AddChannel(client, sse.UserChannel(rd.UserID))

  sh.mu.Lock()
  sh.clients[client.ID] = client
  sh.mu.Unlock()

  defer func() {
    sh.mu.Lock()
    delete(sh.clients, client.ID)
    sh.mu.Unlock()
    sh.hub.CloseClient(client)
  }()

  client.Outbound <- sse.SSEMessage{
    Channel: sse.UserChannel(rd.UserID),
    Event:   sse.SSEEventConnected,
    Data:    gin.H{"client_id": client.ID.String()},
  }

  sh.hub.ServeHTTP(c.Writer, c.Request, client)
}

func (sh *SSEHandler) SSESubscribe(c *gin.Context) {
  client, channel, ok := sh.resolveSubscription(c)
  if !ok {
    return
  }
  sh.hub.AddChannel(client, channel)
  c.JSON(http.StatusOK, gin.H{"subscribed": channel})
}

func (sh *SSEHandler) SSEUnsubscribe(c *gin.Context) {
  client, channel, ok := sh.resolveSubscription(c)
  if !ok {
    return
  }
  sh.hub.RemoveChannel(client, channel)
  c.JSON(http.StatusOK, gin.H{"unsubscribed": channel})
}

// resolveSubscription validates that the caller owns both the client
// and the requested channel. Callers can only touch their own user
// channel, so a stolen client id gives no cross-user visibility.
func (sh *SSEHandler) resolveSubscription(c *gin.Context) (*sse.SSEClient, string, bool) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
    return nil, "", false
  }

  var req struct {
    ClientID      string      `json:"client_id"`
    Channel       string      `json:"channel"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return nil, "", false
  }
  clientID, err := uuid.Parse(req.ClientID)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
    return nil, "", false
  }
  if req.Channel != sse.UserChannel(rd.UserID) {
    c.JSON(http.StatusForbidden, gin.H{"error": "cannot subscribe to that channel"})
    return nil, "", false
  }

  sh.mu.Lock()
  client := sh.clients[clientID]
  sh.mu.Unlock()

  if client == nil || client.UserID != rd.UserID {
    c.JSON(http.StatusNotFound, gin.H{"error": "unknown client"})
    return nil, "", false
  }
  return client, req.Channel, true
}
