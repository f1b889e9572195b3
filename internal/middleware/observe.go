package middleware

import (
  "strconv"
  "strings"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/autonoma/autonoma-backend/internal/ctxutil"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/observability"
  "github.com/autonoma/autonoma-backend/internal/requestdata"
)

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
  return func(c *gin.Context) {
    start := time.Now()
    c.Next()

    if log == nil {
      return
    }

    status := c.Writer.Status()
    path := c.FullPath()
    if path == "" {
      path = c.Request.URL.Path
    }
    td := ctxutil.GetTraceData(c.Request.Context())
    rd := requestdata.GetRequestData(c.Request.Context())

    fields := []interface{}{
      "method", strings.ToUpper(c.Request.Method),
      "path", path,
      "status", status,
      "duration_ms", time.Since(start).Milliseconds(),
    }
    if td != nil {
      if td.TraceID != "" {
        fields = append(fields, "trace_id", td.TraceID)
      }
      if td.RequestID != "" {
        fields = append(fields, "request_id", td.RequestID)
      }
    }
    if rd != nil && rd.UserID != uuid.Nil {
      fields = append(fields, "user_id", rd.UserID.String())
    }

    switch {
    case status >= 500:
      log.Error("HTTP request", fields...)
    case status >= 400:
      log.Warn("HTTP request", fields...)
    default:
      log.Info("HTTP request", fields...)
    }
  }
}

// ObserveRequests feeds the metrics registry. Routes are recorded by
// template (c.FullPath) so path params do not explode label cardinality.
func ObserveRequests() gin.HandlerFunc {
  return func(c *gin.Context) {
    m := observability.Current()
    if m == nil {
      c.Next()
      return
    }
    start := time.Now()
    m.APIInflightInc()
    c.Next()
    m.APIInflightDec()

    route := c.FullPath()
    if route == "" {
      route = "unmatched"
    }
    m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
  }
}
