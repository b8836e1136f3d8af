package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yatube/cache"
	"github.com/freemirror/yatube/metrics"
	"github.com/freemirror/yatube/utils"
)

// PageCachePrefix starts every page cache key; clearing it drops all cached pages.
const PageCachePrefix = "page:"

type cachedPage struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CachePage serves GET responses of the wrapped route from store for ttl.
// Only 200 responses are stored. Writes elsewhere do not invalidate entries; they expire or are cleared.
func CachePage(store cache.Store, ttl time.Duration, name string, m *metrics.Metrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ttl <= 0 || ctx.Request.Method != http.MethodGet {
			ctx.Next()
			return
		}
		key := PageCacheKey(ctx, name)
		rctx := ctx.Request.Context()

		raw, ok, err := store.Get(rctx, key)
		if err != nil {
			utils.Sugar.Warnf("page cache get failed key=%s err=%v", key, err)
		}
		if ok {
			var page cachedPage
			if err := json.Unmarshal(raw, &page); err == nil {
				m.CacheHit(name)
				ctx.Header("X-Cache", "HIT")
				ctx.Data(http.StatusOK, page.ContentType, page.Body)
				ctx.Abort()
				return
			}
		}
		m.CacheMiss(name)

		rec := &bodyRecorder{ResponseWriter: ctx.Writer}
		ctx.Writer = rec
		ctx.Header("X-Cache", "MISS")
		ctx.Next()

		if rec.Status() != http.StatusOK {
			return
		}
		b, err := json.Marshal(cachedPage{ContentType: rec.Header().Get("Content-Type"), Body: rec.buf.Bytes()})
		if err != nil {
			return
		}
		if err := store.Set(rctx, key, b, ttl); err != nil {
			utils.Sugar.Warnf("page cache set failed key=%s err=%v", key, err)
		}
	}
}

// PageCacheKey varies by page name, response format, viewer and page number.
// Other query parameters do not change a listing and are left out of the key.
func PageCacheKey(ctx *gin.Context, name string) string {
	format := "json"
	if WantsHTML(ctx) {
		format = "html"
	}
	viewer := "0"
	if uid, ok := CurrentUserID(ctx); ok {
		viewer = strconv.FormatUint(uint64(uid), 10)
	}
	page, err := strconv.Atoi(strings.TrimSpace(ctx.Query("page")))
	if err != nil || page < 1 {
		page = 1
	}
	return PageCachePrefix + name + ":" + format + ":" + viewer + ":" + strconv.Itoa(page)
}
