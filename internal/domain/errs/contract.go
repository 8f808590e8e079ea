package errs

import "fmt"

// Host contract error codes.
const (
	CodeMissingDataFeedValueBase         uint8 = 100
	CodeIndexRangeExceeded               uint8 = 230
	CodeWrongSignerCountThresholdValue   uint8 = 240
	CodeSignersMustNotBeEmpty            uint8 = 241
	CodeTimestampMustBeGreaterThanBefore uint8 = 250
)

func WrongSignerCountThresholdValue(threshold uint8) *Error {
	return Contract(CodeWrongSignerCountThresholdValue, fmt.Sprintf("Wrong signer count threshold value: %d", threshold))
}

func SignersMustNotBeEmpty() *Error {
	return Contract(CodeSignersMustNotBeEmpty, "Signers must not be empty")
}

// TimestampMustBeGreaterThanBefore is the monotonic-only write check.
func TimestampMustBeGreaterThanBefore() *Error {
	return Contract(CodeTimestampMustBeGreaterThanBefore, "Timestamp must be greater than before")
}

// MissingDataFeedValue reports that feed #index has no stored value.
func MissingDataFeedValue(index int, feed string) *Error {
	return Contract(CodeMissingDataFeedValueBase+uint8(index), fmt.Sprintf("Missing data feed value for #%d (%s)", index, feed))
}

// IndexRangeExceeded reports a chunk index outside the relay's chunk vector.
func IndexRangeExceeded(index int) *Error {
	return Contract(CodeIndexRangeExceeded, fmt.Sprintf("Index range exceeded: %d", index))
}

// DuplicateSigner reports a signer listed more than once.
func DuplicateSigner(signer string) *Error {
	return Contract(CodeWrongSignerCountThresholdValue, fmt.Sprintf("Duplicate signer: %s", signer))
}
