package media

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

// ArtifactPath builds {dir}/{session}-{label}.{ext}, falling back to the
// unix millisecond timestamp when label is empty.
func ArtifactPath(dir, session, label, ext string, now time.Time) string {
	if label == "" {
		label = strconv.FormatInt(now.UnixMilli(), 10)
	}
	name := pathSeparators.Replace(session + "-" + label)
	return filepath.Join(dir, name+"."+strings.TrimPrefix(ext, "."))
}
