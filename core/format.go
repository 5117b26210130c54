package core

// This file centralizes constants related to on-disk file formats and
// protocol-level identifiers shared across the part-writer packages.

// --- Magic Numbers ---
const (
	// PartMagicNumber is the four-byte tag "PART". None of the files the
	// part writer produces contains it.
	PartMagicNumber uint32 = 0x50415254 // "PART"
)

// --- Protocol & Format Versions ---
const (
	// FormatVersion is the current version for all persistent file formats.
	FormatVersion uint8 = 1
)

// --- File Names & Extensions ---
const (
	ColumnsFileName   = "columns.txt"
	ChecksumsFileName = "checksums.txt"
	PrimaryIndexName  = "primary.idx"

	DataFileExtension       = ".bin"
	MarksFileExtension      = ".mrk"
	NullMapExtension        = ".null"
	NullMarksFileExtension  = ".null_mrk"
	ArraySizesColumnSuffix  = "%size"
)
