// Package entities defines the GORM models persisted by the datastore.
//
// A File is identified by its name and resampled duration. Predictions
// belong to one File and one generation, identified by Reference. Only
// predictions whose Reference equals File.CurrentReference are live.
package entities
