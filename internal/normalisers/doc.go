// Package normalisers re-expresses raw records as normalised records.
// Each normaliser handles one record kind, checks the fields its natural key
// needs, and runs the classifier over free text to fill the controlled
// vocabulary fields.
//
// Normalisers are registered with the Registry at startup.
package normalisers
