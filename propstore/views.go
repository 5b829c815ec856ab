package propstore

import "strings"

// View names a property list shown by a metadata viewer.
type View string

// Views registered for the archive file type.
const (
	TileInfo         View = "TileInfo"
	PreviewDetails   View = "PreviewDetails"
	InfoTip          View = "InfoTip"
	FullDetails      View = "FullDetails"
	ExtendedTileInfo View = "ExtendedTileInfo"
)

// File system keys referenced by the views. They are filled by the host,
// never by Publish.
const (
	Size         Key = "System.Size"
	DateModified Key = "System.DateModified"
	ItemType     Key = "System.ItemType"
)

// Views maps each view to its ordered property list.
var Views = map[View][]Key{
	TileInfo:       {Title, Author, Size, DateModified},
	PreviewDetails: {Title, Author, Description, Category, Keywords, DateModified},
	InfoTip:        {Title, Author, DateModified, Size},
	FullDetails: {
		Title, "System.PropGroup.Description", Author, Description, Category, Keywords,
		"System.PropGroup.FileSystem", "System.ItemNameDisplay", ItemType,
		"System.ItemFolderPathDisplay", "System.DateCreated", DateModified, Size,
		"System.FileAttributes", "System.OfflineAvailability", "System.OfflineStatus",
		"System.SharedWith", "System.FileOwner", "System.ComputerName",
	},
	ExtendedTileInfo: {ItemType, Size, Description, Category, Keywords},
}

// PropList renders a view in the "prop:A;B;C" registry form.
func PropList(v View) string {
	keys := Views[v]
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return "prop:" + strings.Join(names, ";")
}

// ParseView returns the view with the given name, case-insensitively.
func ParseView(name string) (View, bool) {
	for v := range Views {
		if strings.EqualFold(string(v), name) {
			return v, true
		}
	}
	return "", false
}

// Field is one key of a view with its value.
type Field struct {
	Key   Key   `json:"key" yaml:"key"`
	Value Value `json:"value" yaml:"value"`
}

// View projects the store onto v, in view order. Keys the store does not
// hold are left out.
func (s *Store) View(v View) []Field {
	keys := Views[v]
	out := make([]Field, 0, len(keys))
	for _, k := range keys {
		if val, ok := s.Value(k); ok {
			out = append(out, Field{Key: k, Value: val})
		}
	}
	return out
}
