package middleware

import (
	"math/rand/v2"
	"time"

	"github.com/gin-gonic/gin"
)

// ResponseDelay holds every response until a random duration in [minDelay, maxDelay)
// has passed since the request arrived, so handler latency does not reveal
// which branch ran. A non-positive maxDelay disables it.
func ResponseDelay(minDelay, maxDelay time.Duration) gin.HandlerFunc {
	if maxDelay <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if minDelay < 0 {
		minDelay = 0
	}

	return func(c *gin.Context) {
		start := time.Now()
		target := minDelay
		if maxDelay > minDelay {
			target += rand.N(maxDelay - minDelay)
		}

		c.Next()

		remaining := target - time.Since(start)
		if remaining <= 0 {
			return
		}
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-c.Request.Context().Done():
		}
	}
}
