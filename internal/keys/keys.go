// Package keys derives collection paths and document keys.
package keys

import (
	"fmt"
	"strings"
)

const sep = "/"

// ValidatePrefix checks that prefix is empty or an alternating
// collection/document path such as "orgs/o1" or "orgs/o1/teams/t1".
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	segments := strings.Split(prefix, sep)
	if len(segments)%2 != 0 {
		return fmt.Errorf("prefix %q must have an even number of segments", prefix)
	}
	for i, s := range segments {
		if s == "" {
			return fmt.Errorf("prefix %q has an empty segment at %d", prefix, i)
		}
	}
	return nil
}

// CollectionPath joins prefix and the collection name.
func CollectionPath(prefix, name string) (string, error) {
	if name == "" || strings.Contains(name, sep) {
		return "", fmt.Errorf("collection name %q must be a single non-empty segment", name)
	}
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	if prefix == "" {
		return name, nil
	}
	return prefix + sep + name, nil
}

// ArchivePath returns the archive collection path for a collection path.
func ArchivePath(path, suffix string) string {
	return path + suffix
}

// GroupName returns the leaf collection name of a path, which is the scope
// for collection-group queries.
func GroupName(path string) string {
	if i := strings.LastIndex(path, sep); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ValidateDocID checks that id can address a single document.
func ValidateDocID(id string) error {
	if id == "" {
		return fmt.Errorf("doc id is empty")
	}
	if strings.Contains(id, sep) {
		return fmt.Errorf("doc id %q must not contain %q", id, sep)
	}
	return nil
}
