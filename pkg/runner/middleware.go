package runner

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/tools"
)

// DeniedMessage is the synthetic result of a rejected tool call.
const DeniedMessage = "User denied execution"

// ToolInterceptor is a middleware that can intercept or block a tool call.
// It returns true if execution should proceed. When it blocks, the returned
// ToolResult is what the model sees instead of the tool's output.
// An error aborts the run.
type ToolInterceptor func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error)

// MultiInterceptor chains interceptors. The first one to block wins.
func MultiInterceptor(interceptors ...ToolInterceptor) ToolInterceptor {
	return func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		for _, interceptor := range interceptors {
			if interceptor == nil {
				continue
			}
			allowed, result, err := interceptor(ctx, call)
			if err != nil {
				return false, domain.ToolResult{}, err
			}
			if !allowed {
				return false, result, nil
			}
		}
		return true, domain.ToolResult{}, nil
	}
}

// ApprovalMiddleware asks approver before any tool whose spec requires
// approval. Tools that do not require it, and unknown tools, pass through;
// the registry reports the latter itself.
func ApprovalMiddleware(reg *tools.Registry, ws *fileops.Workspace, approver Approver) ToolInterceptor {
	return func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		t, ok := reg.Lookup(call.Name)
		if !ok || !t.Spec.RequiresApproval {
			return true, domain.ToolResult{}, nil
		}
		if approver == nil {
			return false, domain.Failure(DeniedMessage, fmt.Errorf("no approver configured for %s", call.Name)), nil
		}

		approved, err := approver.Approve(ctx, ApprovalRequest{
			Call:    call,
			Spec:    t.Spec,
			Preview: tools.Preview(ws, call),
		})
		if err != nil {
			return false, domain.ToolResult{}, err
		}
		if !approved {
			return false, domain.Failure(DeniedMessage, nil), nil
		}
		return true, domain.ToolResult{}, nil
	}
}

// ReadOnlyMiddleware blocks every tool that requires approval.
func ReadOnlyMiddleware(reg *tools.Registry) ToolInterceptor {
	return func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		if t, ok := reg.Lookup(call.Name); ok && t.Spec.RequiresApproval {
			return false, domain.Failure("blocked by read-only policy", fmt.Errorf("%s modifies the workspace", call.Name)), nil
		}
		return true, domain.ToolResult{}, nil
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() ToolInterceptor {
	return func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		return true, domain.ToolResult{}, nil
	}
}
