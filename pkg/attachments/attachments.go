package attachments

import (
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/threadview/pkg/conversation"
	"github.com/go-go-golems/threadview/pkg/security"
)

var ErrValidation = errors.New("validation failed")

type TransferMethod string

const (
	TransferLocalFile TransferMethod = "local_file"
	TransferRemoteURL TransferMethod = "remote_url"
)

// FileURLRegexp is what a remote attachment URL has to match.
var FileURLRegexp = regexp.MustCompile(`^(https?)://`)

// Progress values of a File. Anything in between is an upload percentage.
const (
	ProgressFailed   = -1
	ProgressPending  = 0
	ProgressUploaded = 100
)

// File is an attachment of the question being written.
type File struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Type           string         `json:"type,omitempty" yaml:"type,omitempty"`
	Size           int64          `json:"size,omitempty" yaml:"size,omitempty"`
	URL            string         `json:"url,omitempty" yaml:"url,omitempty"`
	TransferMethod TransferMethod `json:"transferMethod" yaml:"transferMethod"`
	UploadedID     string         `json:"uploadedID,omitempty" yaml:"uploadedID,omitempty"`
	Progress       int            `json:"progress" yaml:"progress"`
}

func (f *File) IsUploading() bool {
	return f.Progress != ProgressFailed && f.UploadedID == ""
}

func (f *File) IsFailed() bool {
	return f.Progress == ProgressFailed
}

// Ref is what the question keeps of the file once it is sent.
func (f *File) Ref() conversation.FileRef {
	return conversation.FileRef{
		ID:             f.ID,
		Name:           f.Name,
		Type:           f.Type,
		TransferMethod: string(f.TransferMethod),
		URL:            f.URL,
		UploadedID:     f.UploadedID,
	}
}

type Config struct {
	// NumberLimit is the maximum number of files of a question, 0 means unlimited
	NumberLimit    int              `yaml:"number-limit"`
	AllowedMethods []TransferMethod `yaml:"allowed-methods"`
	// BlockLocalNetworks rejects remote urls pointing at localhost or private addresses
	BlockLocalNetworks bool `yaml:"block-local-networks"`
}

func (c Config) allows(m TransferMethod) bool {
	if len(c.AllowedMethods) == 0 {
		return true
	}
	for _, a := range c.AllowedMethods {
		if a == m {
			return true
		}
	}
	return false
}

// List holds the attachments of the question being written. It is safe for concurrent use: upload
// callbacks usually come from other goroutines.
type List struct {
	mu     sync.Mutex
	config Config
	files  []*File
}

func NewList(config Config) *List {
	return &List{config: config}
}

func (l *List) add(f *File) (*File, error) {
	if !l.config.allows(f.TransferMethod) {
		return nil, errors.Wrapf(ErrValidation, "transfer method %s is not allowed", f.TransferMethod)
	}
	if l.config.NumberLimit > 0 && len(l.files) >= l.config.NumberLimit {
		return nil, errors.Wrapf(ErrValidation, "at most %d files can be attached", l.config.NumberLimit)
	}
	f.ID = uuid.NewString()
	f.Progress = ProgressPending
	l.files = append(l.files, f)
	log.Debug().Str("file_id", f.ID).Str("name", f.Name).Str("transfer_method", string(f.TransferMethod)).Msg("attachment added")
	ret := *f
	return &ret, nil
}

func (l *List) AddLocal(name string, fileType string, size int64) (*File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if name == "" {
		return nil, errors.Wrap(ErrValidation, "file name is empty")
	}
	return l.add(&File{Name: name, Type: fileType, Size: size, TransferMethod: TransferLocalFile})
}

func (l *List) AddRemote(url string) (*File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !FileURLRegexp.MatchString(url) {
		return nil, errors.Wrapf(ErrValidation, "invalid file url %q", url)
	}
	if l.config.BlockLocalNetworks {
		if err := security.ValidateRemoteURL(url, security.RemoteURLOptions{AllowHTTP: true}); err != nil {
			return nil, errors.Wrapf(ErrValidation, "%v", err)
		}
	}
	return l.add(&File{Name: url, URL: url, TransferMethod: TransferRemoteURL})
}

func (l *List) find(id string) (int, *File, error) {
	for i, f := range l.files {
		if f.ID == id {
			return i, f, nil
		}
	}
	return -1, nil, errors.Errorf("attachment %s not found", id)
}

// SetProgress records an upload percentage.
func (l *List) SetProgress(id string, progress int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, f, err := l.find(id)
	if err != nil {
		return err
	}
	if progress < 0 || progress >= ProgressUploaded {
		return errors.Wrapf(ErrValidation, "upload progress %d is outside 0..99", progress)
	}
	f.Progress = progress
	return nil
}

func (l *List) MarkUploaded(id string, uploadedID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, f, err := l.find(id)
	if err != nil {
		return err
	}
	if uploadedID == "" {
		return errors.Wrap(ErrValidation, "uploaded id is empty")
	}
	f.UploadedID = uploadedID
	f.Progress = ProgressUploaded
	return nil
}

func (l *List) MarkFailed(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, f, err := l.find(id)
	if err != nil {
		return err
	}
	log.Warn().Str("file_id", id).Str("name", f.Name).Msg("attachment upload failed")
	f.UploadedID = ""
	f.Progress = ProgressFailed
	return nil
}

// ReUpload puts a failed file back into the pending state.
func (l *List) ReUpload(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, f, err := l.find(id)
	if err != nil {
		return err
	}
	if !f.IsFailed() {
		return errors.Wrapf(ErrValidation, "attachment %s did not fail", id)
	}
	f.Progress = ProgressPending
	return nil
}

func (l *List) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, _, err := l.find(id)
	if err != nil {
		return err
	}
	l.files = append(l.files[:i], l.files[i+1:]...)
	return nil
}

func (l *List) IsUploading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.files {
		if f.IsUploading() {
			return true
		}
	}
	return false
}

func (l *List) Files() []File {
	l.mu.Lock()
	defer l.mu.Unlock()
	ret := make([]File, 0, len(l.files))
	for _, f := range l.files {
		ret = append(ret, *f)
	}
	return ret
}

// Refs returns the uploaded files, in the order they were added. Failed files are skipped.
func (l *List) Refs() []conversation.FileRef {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ret []conversation.FileRef
	for _, f := range l.files {
		if f.UploadedID != "" {
			ret = append(ret, f.Ref())
		}
	}
	return ret
}

// Clear empties the list once the question was sent.
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files = nil
}
