// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package snomed

// Well-known SNOMED CT identifiers.
const (
	Root uint64 = 138875005
	IsA  uint64 = 116680003

	// Description types.
	FullySpecifiedName uint64 = 900000000000003001
	Synonym            uint64 = 900000000000013009
	Definition         uint64 = 900000000000550004

	// Language refset acceptability.
	Preferred  uint64 = 900000000000548007
	Acceptable uint64 = 900000000000549004

	// Definition status.
	Primitive    uint64 = 900000000000074008
	FullyDefined uint64 = 900000000000073002

	// Characteristic types.
	StatedRelationship   uint64 = 900000000000010007
	InferredRelationship uint64 = 900000000000011006

	CoreModule uint64 = 900000000000207008

	// Language reference sets.
	USEnglishLanguageRefset     uint64 = 900000000000509007
	GBEnglishLanguageRefset     uint64 = 900000000000508004
	UKClinicalLanguageRefset    uint64 = 999001261000000100
	UKPharmacyLanguageRefset    uint64 = 999000691000001104
	SpanishLanguageRefset       uint64 = 450828004
	DanishLanguageRefset        uint64 = 554461000005103
	SwedishLanguageRefset       uint64 = 46011000052107
	NetherlandsLanguageRefset   uint64 = 31000146106
	BelgianFrenchLanguageRefset uint64 = 21000172104

	// Map reference sets.
	ICD10ComplexMapRefset uint64 = 447562003
	ICDOSimpleMapRefset   uint64 = 446608001
	CTV3SimpleMapRefset   uint64 = 900000000000497000

	OWLAxiomRefset uint64 = 733073007
)
