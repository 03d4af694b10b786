package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// BackendAzure names the Azure Blob Storage backend.
const BackendAzure = "azure"

// AzureOptions configures the Azure backend. Either ConnectionString or
// AccountURL must be set; AccountURL authenticates with
// DefaultAzureCredential (managed identity, CLI login or environment).
type AzureOptions struct {
	ConnectionString string
	AccountURL       string
	Container        string
	// CreateContainer creates the container when it does not exist.
	CreateContainer bool
}

// AzureStore keeps objects as block blobs in one container.
type AzureStore struct {
	client    *azblob.Client
	container string
}

var _ ports.BlobStore = (*AzureStore)(nil)

// NewAzureStore creates a client for the configured account.
func NewAzureStore(ctx context.Context, opts AzureOptions) (*AzureStore, error) {
	if opts.Container == "" {
		return nil, ports.NewConfigError("AZURE_STORAGE_CONTAINER_NAME", ports.ErrConfigNotFound)
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case opts.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
	case opts.AccountURL != "":
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain azure credential: %w", err)
		}
		client, err = azblob.NewClient(opts.AccountURL, cred, nil)
	default:
		return nil, ports.NewConfigError("AZURE_STORAGE_CONNECTION_STRING", ports.ErrConfigNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	store := &AzureStore{client: client, container: opts.Container}
	if opts.CreateContainer {
		_, err := client.CreateContainer(ctx, opts.Container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, ports.NewStorageError(BackendAzure, "create_container", opts.Container, mapAzureError(err))
		}
	}
	return store, nil
}

// Backend implements ports.BlobStore.
func (s *AzureStore) Backend() string { return BackendAzure }

// mapAzureError translates service errors into the sentinels the
// middleware understands.
func mapAzureError(err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("%w: %v", ports.ErrBlobNotFound, err)
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ports.ErrRateLimited, err)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return fmt.Errorf("%w: %v", ports.ErrTimeout, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ports.ErrAuthenticationFailed, err)
		}
	}
	return err
}

// Get implements ports.BlobStore.
func (s *AzureStore) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := CleanKey(key)
	if err != nil {
		return nil, ports.NewStorageError(BackendAzure, OpGet, key, err)
	}
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		return nil, ports.NewStorageError(BackendAzure, OpGet, key, mapAzureError(err))
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, ports.NewStorageError(BackendAzure, OpGet, key, err)
	}
	return buf.Bytes(), nil
}

// Put implements ports.BlobStore.
func (s *AzureStore) Put(ctx context.Context, key string, data []byte) error {
	name, err := CleanKey(key)
	if err != nil {
		return ports.NewStorageError(BackendAzure, OpPut, key, err)
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return ports.NewStorageError(BackendAzure, OpPut, key, mapAzureError(err))
	}
	return nil
}

// Exists implements ports.BlobStore.
func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	name, err := CleanKey(key)
	if err != nil {
		return false, ports.NewStorageError(BackendAzure, OpExists, key, err)
	}
	blob := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(name)
	_, err = blob.GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return false, nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, ports.NewStorageError(BackendAzure, OpExists, key, mapAzureError(err))
}

// List implements ports.BlobStore.
func (s *AzureStore) List(ctx context.Context, prefix string) ([]string, error) {
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(prefix),
	})

	var keys []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, ports.NewStorageError(BackendAzure, OpList, prefix, mapAzureError(err))
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				keys = append(keys, *item.Name)
			}
		}
	}
	slices.Sort(keys)
	return keys, nil
}
