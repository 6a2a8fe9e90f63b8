package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadRecord is the metadata stored for every successfully received manual.
// Records are never updated or removed by the API.
type UploadRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CompanyName string             `bson:"company_name" json:"company_name"`
	ProductName string             `bson:"product_name" json:"product_name"`
	URI         string             `bson:"uri" json:"uri"`
	Filename    string             `bson:"filename" json:"filename"`
	SessionID   string             `bson:"session_id,omitempty" json:"session_id,omitempty"`
	UploadedAt  time.Time          `bson:"uploaded_at" json:"uploaded_at"`
}

// DBRecord is the record summary returned by the upload endpoint.
type DBRecord struct {
	ID          string `json:"_id"`
	CompanyName string `json:"company_name"`
	ProductName string `json:"product_name"`
	URI         string `json:"uri"`
}

// ModelEntry is one row of the per-company models listing.
type ModelEntry struct {
	ID          string `json:"_id"`
	CompanyName string `json:"company_name"`
	ProductName string `json:"product_name"`
	Filename    string `json:"filename"`
	URI         string `json:"uri"`
}

// UploadResponse represents the response after successful upload
type UploadResponse struct {
	Message  string   `json:"message"`
	Files    []string `json:"files"`
	DBRecord DBRecord `json:"db_record"`
}

// FilesResponse carries the uploaded-files list.
type FilesResponse struct {
	Message string   `json:"message,omitempty"`
	Files   []string `json:"files"`
}
