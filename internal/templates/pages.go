package templates

import "github.com/a-h/templ"

type requestCopy struct {
	Title  string
	Intro  string
	Action string
	Button string
}

func requestPageCopy(mode RequestFormMode, token string) requestCopy {
	c := requestCopy{
		Title:  "Request File Access",
		Intro:  "Enter your email address. The owner will review your request.",
		Action: "/request/" + token,
		Button: "Request access",
	}
	switch mode {
	case ModeVerify:
		c.Title = "Confirm Your Email"
		c.Intro = "Your request was approved. Enter the email address you requested access with."
		c.Button = "Continue"
	case ModeExpired:
		c.Title = "Approval Expired"
		c.Intro = "Your approval has expired. You can ask the owner for access again."
		c.Action += "/reopen"
		c.Button = "Request again"
	}
	return c
}

// RequestPage renders the visitor form for a QR token in the given mode
func RequestPage(props RequestPageProps) templ.Component {
	return requestPage(props, requestPageCopy(props.Mode, props.Token))
}

// SuccessPage confirms that the owner has been asked
func SuccessPage() templ.Component {
	return MessagePage(MessagePageProps{
		Title:   "Request Sent",
		Message: "Your request has been sent to the owner. You will receive an email once it has been reviewed.",
	})
}

// AlreadyApprovedPage tells a visitor their access is already granted
func AlreadyApprovedPage() templ.Component {
	return MessagePage(MessagePageProps{
		Title:   "Already Approved",
		Message: "Your access has already been approved. Scan the QR code again to open the file.",
	})
}
