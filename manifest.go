package archivekit

// SiblingManifestPath returns the manifest sibling path Pack writes
// alongside a file-backed archive output (spec §4.5.6: "emit a
// manifest sibling file if the output is a file, not a stream").
func SiblingManifestPath(archivePath string) string {
	return archivePath + ".manifest"
}
