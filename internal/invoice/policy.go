package invoice

// ShouldCompleteRemotely decides whether the remote extractor runs. A missing
// credential disables it regardless of the flag, and a clean local result
// never needs it.
func ShouldCompleteRemotely(enabled, hasCredential bool, inconsistencies []string) bool {
	return enabled && hasCredential && len(inconsistencies) > 0
}
