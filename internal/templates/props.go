package templates

// BaseProps contains common properties shared across all pages
type BaseProps struct {
	CSRFToken string
}

// ===== Page Props Structures =====

// ErrorPageProps contains properties for the error page
type ErrorPageProps struct {
	BaseProps
	Error   string
	Message string
}

// MessagePageProps contains properties for a titled one-message page
type MessagePageProps struct {
	BaseProps
	Title   string
	Message string
}

// GeneratePageProps contains properties for the owner QR generation page
type GeneratePageProps struct {
	BaseProps
	FileLink string
	Error    string
}

// RequestFormMode selects which variant of the visitor form is shown
type RequestFormMode string

const (
	// ModeSubmit asks a visitor to request access
	ModeSubmit RequestFormMode = "submit"
	// ModeVerify asks an approved visitor to confirm their email
	ModeVerify RequestFormMode = "verify"
	// ModeExpired offers a re-request after the approval window elapsed
	ModeExpired RequestFormMode = "expired"
)

// RequestPageProps contains properties for the visitor request page
type RequestPageProps struct {
	BaseProps
	Token string
	Email string
	Mode  RequestFormMode
	Error string
}

// TokenlessPageProps contains properties for the tokenless request page
type TokenlessPageProps struct {
	BaseProps
	Email string
	Error string
}

// ===== Email Props Structures =====

// OwnerRequestEmailProps contains properties for the owner's approve/deny email
type OwnerRequestEmailProps struct {
	RequesterEmail string
	ApproveURL     string
	DenyURL        string
}

// Email subjects
const (
	SubjectAccessRequest  = "File Access Request"
	SubjectAccessApproved = "Access Approved"
	SubjectAccessDenied   = "Access Denied"
)
