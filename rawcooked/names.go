package rawcooked

// Element names. They are written as EB integers.
const (
	nameEBML               = 0x0A45DFA3
	nameDocType            = 0x0282
	nameDocTypeVersion     = 0x0287
	nameDocTypeReadVersion = 0x0285

	nameSegment    = 0x7273
	nameAttachment = 0x7261
	nameTrack      = 0x7274
	nameBlock      = 0x7262

	nameBeforeData = 0x01
	nameAfterData  = 0x02
	nameMaskBefore = 0x03
	nameMaskAfter  = 0x04
	nameInData     = 0x05
	nameMaskIn     = 0x06
	nameFileName   = 0x10
	nameMaskName   = 0x11
	nameFileHash   = 0x20
	nameFileSize   = 0x30
	nameMaskSize   = 0x31

	nameLibraryName    = 0x70
	nameLibraryVersion = 0x71
	namePathSeparator  = 0x72
)

// DocType is the document type of reversibility data.
const DocType = "rawcooked"

// Format versions written in the EBML header.
const (
	DocTypeVersion     = 1
	DocTypeReadVersion = 1
)

// LibraryName is written in the Segment element.
const LibraryName = "rawcooked-go"

// PathSeparator is the separator used in stored file names.
const PathSeparator = "/"
