package importer

import (
	"strconv"
	"strings"
)

// Denylist is the immutable set of appids and slugs that must never be
// imported. It is built once at startup from config and only read after
// that, so concurrent use needs no locking.
type Denylist struct {
	apps  map[int64]struct{}
	slugs map[string]struct{}
}

func NewDenylist(appIDs []int64, slugs []string) Denylist {
	d := Denylist{
		apps:  make(map[int64]struct{}, len(appIDs)),
		slugs: make(map[string]struct{}, len(slugs)),
	}
	for _, id := range appIDs {
		d.apps[id] = struct{}{}
	}
	for _, s := range slugs {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			d.slugs[s] = struct{}{}
		}
	}
	return d
}

// ParseDenylist builds a Denylist from config string lists; unparseable
// appid entries are ignored.
func ParseDenylist(appIDs, slugs []string) Denylist {
	ids := make([]int64, 0, len(appIDs))
	for _, s := range appIDs {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return NewDenylist(ids, slugs)
}

func (d Denylist) BlockedApp(appid int64) bool {
	_, ok := d.apps[appid]
	return ok
}

func (d Denylist) BlockedSlug(slug string) bool {
	_, ok := d.slugs[strings.ToLower(slug)]
	return ok
}

func (d Denylist) Size() int {
	return len(d.apps) + len(d.slugs)
}
