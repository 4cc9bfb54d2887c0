package model

// UploadedFile describes a file part written to a scratch location.
type UploadedFile struct {
	FileName    string // client supplied name; empty when the part carried none
	ContentType string
	Size        int64
	Path        string // scratch location, removed when the request completes
}

// HasFileName reports whether the client supplied a file name.
func (f UploadedFile) HasFileName() bool {
	return f.FileName != ""
}

// UploadFileRequest is the decoded multipart body of POST /upload.
type UploadFileRequest struct {
	File        UploadedFile
	Description string
}
