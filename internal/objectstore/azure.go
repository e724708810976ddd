package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"onionbot/internal/services"
)

// AzureOptions configures the Azure Blob Storage backend. A connection string
// takes precedence; otherwise AccountURL is used with Credential, or with the
// default Azure credential chain when Credential is nil.
type AzureOptions struct {
	Root             string
	AccountURL       string
	Container        string
	ConnectionString string
	Credential       azcore.TokenCredential
}

// Azure uploads artifacts as block blobs.
type Azure struct {
	root      string
	container string
	client    *azblob.Client
}

// NewAzure builds the blob client. No network traffic happens until Upload.
func NewAzure(opts AzureOptions) (*Azure, error) {
	if opts.Container == "" {
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "azblob", "container is required", nil)
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case opts.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
	case opts.AccountURL != "":
		cred := opts.Credential
		if cred == nil {
			cred, err = azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "objectstore", "azblob", "default credential", err)
			}
		}
		client, err = azblob.NewClient(opts.AccountURL, cred, nil)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "azblob", "account url or connection string is required", nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "azblob", "create client", err)
	}
	return &Azure{root: opts.Root, container: opts.Container, client: client}, nil
}

func (a *Azure) Name() string { return "azblob" }

// Upload sends localPath as a block blob named after its path relative to
// the local root.
func (a *Azure) Upload(ctx context.Context, localPath string) error {
	name, err := ObjectName(a.root, localPath)
	if err != nil {
		return err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer file.Close()

	contentType := ContentType(localPath)
	_, err = a.client.UploadFile(ctx, a.container, name, file, &azblob.UploadFileOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			return services.Wrap(services.ErrTransient, "objectstore", "azblob upload",
				fmt.Sprintf("%s: %s (%d)", name, respErr.ErrorCode, respErr.StatusCode), err)
		}
		return services.Wrap(services.ErrTransient, "objectstore", "azblob upload", name, err)
	}
	return nil
}

// ContentType returns the MIME type stored with an artifact.
func ContentType(path string) string {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
