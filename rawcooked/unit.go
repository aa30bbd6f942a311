package rawcooked

// Unit is what is needed to rebuild one file, or one frame of a sequence,
// from its essence. Nil byte slices are absent fields.
type Unit struct {
	// IsUnique is true when the file is a whole stream, false for one frame
	// of a sequence whose fields are diffed against the first frame.
	IsUnique bool
	// IsAttachment marks files stored beside the essence.
	IsAttachment bool

	FileName []byte
	Before   []byte
	After    []byte
	In       []byte

	FileSize    uint64
	HasFileSize bool

	Hash *Hash
}
