// Package keto is a typed client of the ORY Keto access control policy engine (ACP v0).
package keto

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/httpclient"
)

const (
	serviceName = "keto"

	// FlavorExact matches resources and subjects literally.
	FlavorExact = "exact"
	// FlavorRegex matches resources and subjects as regular expressions.
	FlavorRegex = "regex"
	// FlavorGlob matches resources and subjects as glob patterns.
	FlavorGlob = "glob"

	rolesPath    = "/engines/acp/ory/" + FlavorExact + "/roles"
	policiesPath = "/engines/acp/ory/" + FlavorRegex + "/policies"
)

// Role is a named set of members. Groups are stored as roles.
type Role struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// Policy allows or denies actions of subjects on resources.
type Policy struct {
	ID          string         `json:"id"`
	Description string         `json:"description,omitempty"`
	Effect      string         `json:"effect"`
	Actions     []string       `json:"actions"`
	Subjects    []string       `json:"subjects"`
	Resources   []string       `json:"resources"`
	Conditions  map[string]any `json:"conditions,omitempty"`
}

// AccessRequest asks whether subject may do action on resource.
type AccessRequest struct {
	Subject  string         `json:"subject"`
	Resource string         `json:"resource"`
	Action   string         `json:"action"`
	Context  map[string]any `json:"context,omitempty"`
}

// Client talks to keto.
type Client struct {
	http *httpclient.Client
}

// New creates a client of the keto instance at baseURL.
func New(baseURL string, timeout time.Duration, secured bool) *Client {
	return &Client{
		http: httpclient.New(serviceName, baseURL, nil, httpclient.Options{Timeout: timeout, Secured: secured}),
	}
}

func notFound(err error, msg string) error {
	if httpclient.StatusOf(err) == http.StatusNotFound {
		return apperror.Wrap(err, apperror.NotFound, msg)
	}

	return err
}

// PutRole creates or replaces the role.
func (c *Client) PutRole(ctx context.Context, r Role) error {
	if r.Members == nil {
		r.Members = []string{}
	}

	_, err := c.http.Do(ctx, http.MethodPut, rolesPath, nil, r, nil)

	return err
}

// GetRole reads the role. An unknown role is NotFound.
func (c *Client) GetRole(ctx context.Context, id string) (*Role, error) {
	var r Role

	if _, err := c.http.Do(ctx, http.MethodGet, rolesPath+"/"+url.PathEscape(id), nil, nil, &r); err != nil {
		return nil, notFound(err, "Role not found")
	}

	return &r, nil
}

// DeleteRole removes the role and its members. An unknown role is NotFound.
func (c *Client) DeleteRole(ctx context.Context, id string) error {
	_, err := c.http.Do(ctx, http.MethodDelete, rolesPath+"/"+url.PathEscape(id), nil, nil, nil)

	return notFound(err, "Role not found")
}

// AddMembers adds members to the role.
func (c *Client) AddMembers(ctx context.Context, id string, members []string) error {
	body := struct {
		Members []string `json:"members"`
	}{Members: members}

	_, err := c.http.Do(ctx, http.MethodPut, rolesPath+"/"+url.PathEscape(id)+"/members", nil, body, nil)

	return err
}

// RemoveMember removes member from the role.
func (c *Client) RemoveMember(ctx context.Context, id, member string) error {
	_, err := c.http.Do(ctx, http.MethodDelete,
		rolesPath+"/"+url.PathEscape(id)+"/members/"+url.PathEscape(member), nil, nil, nil)

	return err
}

// ListRolesByMember lists the roles member belongs to.
func (c *Client) ListRolesByMember(ctx context.Context, member string) ([]Role, error) {
	roles := []Role{}

	if _, err := c.http.Do(ctx, http.MethodGet, rolesPath, url.Values{"member": {member}}, nil, &roles); err != nil {
		return nil, err
	}

	return roles, nil
}

// PutPolicy creates or replaces the policy.
func (c *Client) PutPolicy(ctx context.Context, p Policy) error {
	_, err := c.http.Do(ctx, http.MethodPut, policiesPath, nil, p, nil)

	return err
}

// DeletePolicy removes the policy. An unknown policy is NotFound.
func (c *Client) DeletePolicy(ctx context.Context, id string) error {
	_, err := c.http.Do(ctx, http.MethodDelete, policiesPath+"/"+url.PathEscape(id), nil, nil, nil)

	return notFound(err, "Policy not found")
}

// Allowed evaluates req with the policies of flavor. keto answers 200 to allow
// and 403 to deny; any other answer is an error.
func (c *Client) Allowed(ctx context.Context, flavor string, req AccessRequest) (bool, error) {
	if flavor == "" {
		flavor = FlavorRegex
	}

	status, err := c.http.Do(ctx, http.MethodPost, "/engines/acp/ory/"+flavor+"/allowed", nil, req, nil)
	if err != nil {
		if httpclient.StatusOf(err) == http.StatusForbidden {
			return false, nil
		}

		return false, err
	}

	return status == http.StatusOK, nil
}
