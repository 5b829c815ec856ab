package propstore

import (
	"strconv"
	"time"
)

// ItemTypeName is the ItemType text of archive files.
const ItemTypeName = "Garry's Mod Addon"

// PublishFile writes the file system keys a viewer expects next to the
// header slots: Size in bytes, DateModified in RFC 3339 UTC and ItemType.
func PublishFile(s Sink, size int64, modTime time.Time) error {
	values := []struct {
		key  Key
		text string
	}{
		{Size, strconv.FormatInt(size, 10)},
		{DateModified, modTime.UTC().Format(time.RFC3339)},
		{ItemType, ItemTypeName},
	}
	for _, v := range values {
		if err := s.SetValueAndState(v.key, Value{Texts: []string{v.text}}); err != nil {
			return err
		}
	}
	return nil
}
