// internal/platform/di/shared/secret_provider_sm.go
package shared

import (
	"context"
	"errors"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

var errSecretProviderNotConfigured = errors.New("shared: secretProviderSM not configured")

// secretProviderSM resolves plain-text secrets (e.g. the Redis password) from
// Secret Manager.
type secretProviderSM struct {
	access    func(ctx context.Context, name string) ([]byte, error)
	projectID string
}

func newSecretProviderSM(sm *secretmanager.Client, projectID string) *secretProviderSM {
	if sm == nil {
		return &secretProviderSM{projectID: projectID}
	}
	return &secretProviderSM{
		projectID: projectID,
		access: func(ctx context.Context, name string) ([]byte, error) {
			resp, err := sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
			if err != nil {
				return nil, err
			}
			if resp == nil || resp.Payload == nil {
				return nil, nil
			}
			return resp.Payload.Data, nil
		},
	}
}

// Secret returns the trimmed payload of secret. secret is either a bare
// secret ID (latest version of projectID) or a full resource name.
func (p *secretProviderSM) Secret(ctx context.Context, secret string) (string, error) {
	if p == nil || p.access == nil {
		return "", errSecretProviderNotConfigured
	}
	name, err := secretVersionName(p.projectID, secret)
	if err != nil {
		return "", err
	}

	data, err := p.access(ctx, name)
	if err != nil {
		return "", errors.New("secretProviderSM: AccessSecretVersion failed (" + name + "): " + err.Error())
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", errors.New("secretProviderSM: empty payload (" + name + ")")
	}
	return v, nil
}

func secretVersionName(projectID, secret string) (string, error) {
	s := strings.TrimSpace(secret)
	if s == "" {
		return "", errors.New("secretProviderSM: secret is empty")
	}
	if strings.HasPrefix(s, "projects/") {
		if strings.Contains(s, "/versions/") {
			return s, nil
		}
		return s + "/versions/latest", nil
	}
	prj := strings.TrimSpace(projectID)
	if prj == "" {
		return "", errors.New("secretProviderSM: projectID is empty")
	}
	return "projects/" + prj + "/secrets/" + s + "/versions/latest", nil
}
