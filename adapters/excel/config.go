package excel

// ReaderConfig controls how sheets are located and cells parsed
type ReaderConfig struct {
	// Sheet to read from workbooks; empty means Sheet1, then the first sheet
	Sheet string `json:"sheet" yaml:"sheet"`
	// Comma is the CSV field separator
	Comma rune `json:"comma" yaml:"comma"`
}

// DefaultReaderConfig returns the defaults used by NewDataReader
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Sheet: "Sheet1",
		Comma: ',',
	}
}
