// Package mappings persists the links between locally minted temporary
// identifiers and the permanent identifiers the remote authority assigns.
package mappings
