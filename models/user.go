// models/user.go
package models

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an agent (or an operator when Role is admin). The document id is the auth uid.
type User struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	UniqueID      string    `json:"uniqueID" bson:"uniqueID"`
	FullName      string    `json:"fullname" bson:"fullname"`
	Mobile        string    `json:"mobile" bson:"mobile"`
	Email         string    `json:"email" bson:"email"`
	Role          string    `json:"role" bson:"role"`
	Earnings      float64   `json:"earnings" bson:"earnings"`           // total paid out through approved withdrawals
	ApprovedLeads int       `json:"approvedLeads" bson:"approvedLeads"` // lifetime approved leads
	PasswordHash  string    `json:"-" bson:"passwordHash,omitempty"`
	FCMToken      string    `json:"-" bson:"fcmToken,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// BankDetails lives at users/{id}/Details&Documents/Bankdetails.
type BankDetails struct {
	AccountNumber string `json:"accountNumber" bson:"accountNumber"`
	BankName      string `json:"bankName" bson:"bankName"`
	IFSCCode      string `json:"ifscCode" bson:"ifscCode"`
	PAN           string `json:"pan" bson:"pan"`
}

type ProfileDetails struct {
	DateOfBirth string `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty" bson:"gender,omitempty"`
	Address     string `json:"address,omitempty" bson:"address,omitempty"`
	City        string `json:"city,omitempty" bson:"city,omitempty"`
	State       string `json:"state,omitempty" bson:"state,omitempty"`
	Pincode     string `json:"pincode,omitempty" bson:"pincode,omitempty"`
	Occupation  string `json:"occupation,omitempty" bson:"occupation,omitempty"`
}

// Document is an uploaded file reference, e.g. a PAN or Aadhaar scan.
type Document struct {
	Name       string    `json:"name" bson:"name"`
	Path       string    `json:"path" bson:"path"`
	UploadedAt time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

// UserDetails groups the Details&Documents sub-records of an agent.
type UserDetails struct {
	UserID    string          `json:"userId" bson:"_id"`
	Bank      *BankDetails    `json:"bankDetails,omitempty" bson:"bankDetails,omitempty"`
	Profile   *ProfileDetails `json:"profileDetails,omitempty" bson:"profileDetails,omitempty"`
	Documents []Document      `json:"documents,omitempty" bson:"documents,omitempty"`
}

// UserUpdate carries the editable agent profile fields.
type UserUpdate struct {
	FullName *string         `json:"fullname,omitempty" validate:"omitempty,min=2,max=100"`
	Mobile   *string         `json:"mobile,omitempty" validate:"omitempty,min=7,max=15"`
	Email    *string         `json:"email,omitempty" validate:"omitempty,email"`
	Bank     *BankDetails    `json:"bankDetails,omitempty"`
	Profile  *ProfileDetails `json:"profileDetails,omitempty"`
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PaginatedData wraps a single page of a listing.
type PaginatedData struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int         `json:"total"`
	TotalPages int         `json:"totalPages"`
}
