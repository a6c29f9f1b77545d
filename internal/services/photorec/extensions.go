package photorec

import "strings"

// supportedExtensions mirrors the engine's fileopt menu. Entries the engine
// does not know are rejected before a job starts rather than silently
// ignored mid-carve.
var supportedExtensions = map[string]struct{}{
	"7z":     {},
	"a":      {},
	"aif":    {},
	"asf":    {},
	"au":     {},
	"avi":    {},
	"bmp":    {},
	"bz2":    {},
	"cab":    {},
	"crw":    {},
	"ctg":    {},
	"cwk":    {},
	"dbf":    {},
	"dir":    {},
	"djv":    {},
	"doc":    {},
	"dump":   {},
	"elf":    {},
	"evt":    {},
	"exe":    {},
	"fh10":   {},
	"flac":   {},
	"gif":    {},
	"gpg":    {},
	"gz":     {},
	"html":   {},
	"indd":   {},
	"iso":    {},
	"jpg":    {},
	"kdb":    {},
	"ldb":    {},
	"lnk":    {},
	"m2ts":   {},
	"max":    {},
	"mb":     {},
	"mdb":    {},
	"mid":    {},
	"mkv":    {},
	"mov":    {},
	"mp3":    {},
	"mpg":    {},
	"mrw":    {},
	"mysql":  {},
	"ogg":    {},
	"orf":    {},
	"pap":    {},
	"pdf":    {},
	"png":    {},
	"prc":    {},
	"ps":     {},
	"psd":    {},
	"ra":     {},
	"raf":    {},
	"rar":    {},
	"raw":    {},
	"reg":    {},
	"riff":   {},
	"rm":     {},
	"rpm":    {},
	"sqlite": {},
	"swf":    {},
	"tar":    {},
	"tif":    {},
	"tx":     {},
	"txt":    {},
	"wav":    {},
	"wmf":    {},
	"x3f":    {},
	"xcf":    {},
	"xm":     {},
	"zip":    {},
}

// IsSupportedExtension reports whether the engine's fileopt menu carries the
// extension. Matching is case-insensitive and ignores a leading dot.
func IsSupportedExtension(ext string) bool {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if normalized == "" {
		return false
	}
	_, ok := supportedExtensions[normalized]
	return ok
}
