package middleware

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is gin's access log with ?access_token values masked.
func Logger(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    out,
		Formatter: accessLogLine,
	})
}

func accessLogLine(p gin.LogFormatterParams) string {
	if p.Latency > time.Minute {
		p.Latency = p.Latency.Truncate(time.Second)
	}
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		p.StatusCode,
		p.Latency,
		p.ClientIP,
		p.Method,
		redactPath(p.Path),
		p.ErrorMessage,
	)
}

func redactPath(path string) string {
	u, err := url.Parse(path)
	if err != nil {
		plain, _, _ := strings.Cut(path, "?")
		return plain
	}
	q := u.Query()
	if !q.Has(accessTokenParam) {
		return path
	}
	q.Set(accessTokenParam, "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
