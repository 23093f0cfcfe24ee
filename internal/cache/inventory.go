package cache

import (
	"fmt"
	"time"
)

const (
	IndexPageKeyPrefix = "index_page:%d:%s"
	BlacklistKeyPrefix = "blacklist:%s"
)

const (
	// IndexPageTTL is the default lifetime of a cached index page.
	IndexPageTTL = 20 * time.Second
)

// IndexPageKey keys the rendered index by page number and viewer, so a logged-in
// navigation bar is never served to someone else.
func IndexPageKey(page int, viewerID uint) string {
	viewer := "anon"
	if viewerID != 0 {
		viewer = fmt.Sprintf("u%d", viewerID)
	}
	return fmt.Sprintf(IndexPageKeyPrefix, page, viewer)
}

// BlacklistKey keys a revoked session id.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}
