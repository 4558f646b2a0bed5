package clips

import "regexp"

// Pre-compiled regexes for classifying ffmpeg stderr output into readable
// transcode-failure reasons. A failed clip is dropped either way; the
// classification only improves the log line.
var (
	reMissingInput = regexp.MustCompile(
		`(?i)no such file or directory|does not exist|Invalid data found when processing input`)

	reSeekIssue = regexp.MustCompile(
		`(?i)could not seek|Invalid duration|Output file is empty|` +
			`Error while decoding|Conversion failed`)

	reEncoderIssue = regexp.MustCompile(
		`(?i)Unknown encoder|Error while opening encoder|` +
			`encoder not found`)

	reDiskIssue = regexp.MustCompile(
		`(?i)no space left on device|Read-only file system|permission denied`)
)

// ClassifyTranscodeFailure maps ffmpeg stderr to a short reason label for
// logging: "missing-input", "seek", "encoder", "disk", or "unknown".
func ClassifyTranscodeFailure(stderr string) string {
	switch {
	case reMissingInput.MatchString(stderr):
		return "missing-input"
	case reEncoderIssue.MatchString(stderr):
		return "encoder"
	case reDiskIssue.MatchString(stderr):
		return "disk"
	case reSeekIssue.MatchString(stderr):
		return "seek"
	default:
		return "unknown"
	}
}
