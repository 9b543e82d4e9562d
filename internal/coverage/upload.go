package coverage

import (
	"errors"
	"net/http"

	"github.com/reconquest/gate-runner/internal/api"
	"github.com/reconquest/karma-go"
)

const (
	DefaultCodecovAddress = "https://codecov.io"
	DefaultCodacyAddress  = "https://api.codacy.com"
)

// Meta identifies the run the coverage belongs to on the remote
// dashboards.
type Meta struct {
	Commit string
	Branch string
	Slug   string
}

// Uploader ships a coverage report to an external dashboard. Uploads are
// best effort: the caller logs failures and never fails the job because
// of them.
type Uploader interface {
	Name() string
	Upload(report *Report, raw []byte, meta Meta) error
}

type CodecovUploader struct {
	address string
	token   string
	client  *http.Client
}

func NewCodecovUploader(address string, token string) *CodecovUploader {
	if address == "" {
		address = DefaultCodecovAddress
	}

	return &CodecovUploader{
		address: address,
		token:   token,
		client:  http.DefaultClient,
	}
}

func (uploader *CodecovUploader) Name() string {
	return "codecov"
}

func (uploader *CodecovUploader) Upload(
	report *Report,
	raw []byte,
	meta Meta,
) error {
	if uploader.token == "" {
		return errors.New("codecov token is not configured")
	}

	err := api.NewRequest(uploader.client).
		BaseURL(uploader.address).
		POST().
		Path("/upload/v2").
		Query("token", uploader.token).
		Query("commit", meta.Commit).
		Query("branch", meta.Branch).
		Query("slug", meta.Slug).
		Header("Content-Type", "text/plain").
		RawPayload(raw).
		ExpectStatus(http.StatusOK).
		Do()
	if err != nil {
		return karma.Format(
			err,
			"unable to upload coverage to codecov",
		)
	}

	return nil
}

type CodacyUploader struct {
	address string
	token   string
	client  *http.Client
}

func NewCodacyUploader(address string, token string) *CodacyUploader {
	if address == "" {
		address = DefaultCodacyAddress
	}

	return &CodacyUploader{
		address: address,
		token:   token,
		client:  http.DefaultClient,
	}
}

func (uploader *CodacyUploader) Name() string {
	return "codacy"
}

type codacyPayload struct {
	Total float64 `json:"total"`
}

func (uploader *CodacyUploader) Upload(
	report *Report,
	raw []byte,
	meta Meta,
) error {
	if uploader.token == "" {
		return errors.New("codacy project token is not configured")
	}

	err := api.NewRequest(uploader.client).
		BaseURL(uploader.address).
		POST().
		Path("/2.0/coverage/"+meta.Commit).
		Header("project_token", uploader.token).
		Payload(codacyPayload{Total: report.Percent()}).
		ExpectStatus(http.StatusOK).
		Do()
	if err != nil {
		return karma.Format(
			err,
			"unable to upload coverage to codacy",
		)
	}

	return nil
}
