// Package role provisions the IAM role MediaConvert assumes to read inputs
// and write outputs.
package role

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"vidframe/apierr"
	"vidframe/logger"
	"vidframe/models"
)

const (
	DefaultName        = "MediaConvert_Default_Role"
	DefaultDescription = "Default role for AWS MediaConvert service"
	ServicePrincipal   = "mediaconvert.amazonaws.com"
)

// DefaultPolicyARNs are the managed policies attached to a newly created role.
var DefaultPolicyARNs = []string{
	"arn:aws:iam::aws:policy/AmazonAPIGatewayInvokeFullAccess",
	"arn:aws:iam::aws:policy/AmazonS3FullAccess",
}

// API is the subset of the IAM client the provisioner calls.
type API interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
}

var _ API = (*iam.Client)(nil)

// Spec describes the role to ensure. Zero fields take the defaults above.
type Spec struct {
	Name        string
	Description string
	PolicyARNs  []string
}

func (s Spec) withDefaults() Spec {
	if s.Name == "" {
		s.Name = DefaultName
	}
	if s.Description == "" {
		s.Description = DefaultDescription
	}
	if s.PolicyARNs == nil {
		s.PolicyARNs = DefaultPolicyARNs
	}
	return s
}

// Role is the provisioned IAM role.
type Role struct {
	Name        string
	ARN         string
	TrustPolicy string
	PolicyARNs  []string
	Created     bool // false when the role already existed
}

// TrustPolicy returns the assume-role document allowing MediaConvert to assume the role.
func TrustPolicy() (string, error) {
	doc := models.PolicyDocument{
		Version: models.PolicyVersion,
		Statement: []models.Statement{{
			Effect:    "Allow",
			Principal: map[string]string{"Service": ServicePrincipal},
			Action:    "sts:AssumeRole",
		}},
	}
	s, err := doc.JSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal trust policy: %w", err)
	}
	return s, nil
}

// Ensure creates the role and attaches its policies. If the role already
// exists its ARN is looked up and returned instead; no policies are attached
// in that case. A failed attachment leaves the created role in place.
func Ensure(ctx context.Context, api API, spec Spec) (*Role, error) {
	spec = spec.withDefaults()

	trust, err := TrustPolicy()
	if err != nil {
		return nil, err
	}

	out, err := api.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(spec.Name),
		AssumeRolePolicyDocument: aws.String(trust),
		Description:              aws.String(spec.Description),
	})
	if err != nil {
		if apierr.Is(err, apierr.EntityAlreadyExists) {
			logger.Infof("Role '%s' already exists", spec.Name)
			return lookup(ctx, api, spec.Name, trust)
		}
		logger.Errorf("Failed to create role %s: %v", spec.Name, err)
		return nil, err
	}

	r := &Role{
		Name:        spec.Name,
		ARN:         aws.ToString(out.Role.Arn),
		TrustPolicy: trust,
		Created:     true,
	}

	for _, policyARN := range spec.PolicyARNs {
		if _, err := api.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  aws.String(spec.Name),
			PolicyArn: aws.String(policyARN),
		}); err != nil {
			logger.Errorf("Failed to attach policy %s to role %s: %v", policyARN, spec.Name, err)
			return nil, fmt.Errorf("attach policy %s to role %s: %w", policyARN, spec.Name, err)
		}
		r.PolicyARNs = append(r.PolicyARNs, policyARN)
	}

	logger.Infof("Created role %s", spec.Name)
	logger.Infof("Role ARN: %s", r.ARN)
	return r, nil
}

func lookup(ctx context.Context, api API, name, trust string) (*Role, error) {
	out, err := api.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("get existing role %s: %w", name, apierr.Wrap("GetRole", err))
	}
	return &Role{
		Name:        name,
		ARN:         aws.ToString(out.Role.Arn),
		TrustPolicy: trust,
	}, nil
}
