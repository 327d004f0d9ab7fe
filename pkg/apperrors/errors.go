// Package apperrors defines the closed error taxonomy of the workflow
// core. Every failure a caller can observe carries a stable machine
// code, an HTTP status and a bilingual (vi/en) message, so clients
// branch on Kind instead of parsing text.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type Kind string

const (
	KindUnauthenticated             Kind = "UNAUTHENTICATED"
	KindNoActiveOrganization        Kind = "NO_ACTIVE_ORGANIZATION"
	KindForbiddenOrgType            Kind = "FORBIDDEN_ORG_TYPE"
	KindForbidden                   Kind = "FORBIDDEN"
	KindInsufficientRole            Kind = "INSUFFICIENT_ROLE"
	KindSelfApprovalForbidden       Kind = "SELF_APPROVAL_FORBIDDEN"
	KindNotFound                    Kind = "NOT_FOUND"
	KindEquipmentOrgMismatch        Kind = "EQUIPMENT_ORG_MISMATCH"
	KindInvalidTransition           Kind = "INVALID_TRANSITION"
	KindInvalidQuoteStatus          Kind = "INVALID_QUOTE_STATUS"
	KindInvalidServiceRequestStatus Kind = "INVALID_SERVICE_REQUEST_STATUS"
	KindInvalidReason               Kind = "INVALID_REASON"
	KindRateLimited                 Kind = "RATE_LIMITED"
	KindValidation                  Kind = "VALIDATION"
	KindInternal                    Kind = "INTERNAL"
)

// Message is a bilingual user-facing payload. VI is the primary copy,
// EN the fallback for API clients.
type Message struct {
	VI string `json:"vi"`
	EN string `json:"en"`
}

type Error struct {
	Kind       Kind
	HTTPStatus int
	Message    Message
	Details    map[string]interface{}
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message.EN, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message.EN)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the taxonomy kind from any error chain. Unknown
// errors are classified INTERNAL.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }

func newError(kind Kind, status int, vi, en string) *Error {
	return &Error{
		Kind:       kind,
		HTTPStatus: status,
		Message:    Message{VI: vi, EN: en},
	}
}

func (e *Error) withDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

func Unauthenticated() *Error {
	return newError(KindUnauthenticated, http.StatusUnauthorized,
		"Chưa xác thực", "not authenticated")
}

func NoActiveOrganization() *Error {
	return newError(KindNoActiveOrganization, http.StatusForbidden,
		"Tài khoản chưa thuộc tổ chức nào", "no active organization for this account")
}

func ForbiddenOrgType(expected, actual string) *Error {
	return newError(KindForbiddenOrgType, http.StatusForbidden,
		"Loại tổ chức không được phép thực hiện thao tác này",
		"organization type is not allowed to perform this operation").
		withDetails(map[string]interface{}{"expected": expected, "actual": actual})
}

func Forbidden() *Error {
	return newError(KindForbidden, http.StatusForbidden,
		"Không có quyền truy cập tài nguyên này", "access to this resource is denied")
}

func InsufficientRole(role string) *Error {
	return newError(KindInsufficientRole, http.StatusForbidden,
		"Cần quyền chủ sở hữu hoặc quản trị viên", "owner or admin role required").
		withDetails(map[string]interface{}{"role": role})
}

func SelfApprovalForbidden() *Error {
	return newError(KindSelfApprovalForbidden, http.StatusForbidden,
		"Không thể tự phê duyệt yêu cầu của chính mình", "cannot approve your own request")
}

func NotFound(resource string) *Error {
	return newError(KindNotFound, http.StatusNotFound,
		"Không tìm thấy dữ liệu", "resource not found").
		withDetails(map[string]interface{}{"resource": resource})
}

func EquipmentOrgMismatch() *Error {
	return newError(KindEquipmentOrgMismatch, http.StatusForbidden,
		"Thiết bị không thuộc về tổ chức của bạn", "equipment does not belong to your organization")
}

func InvalidTransition(current, requested string) *Error {
	return newError(KindInvalidTransition, http.StatusConflict,
		fmt.Sprintf("Không thể chuyển trạng thái từ %q sang %q", current, requested),
		fmt.Sprintf("cannot transition from %q to %q", current, requested)).
		withDetails(map[string]interface{}{"current": current, "requested": requested})
}

func InvalidQuoteStatus(current string) *Error {
	return newError(KindInvalidQuoteStatus, http.StatusConflict,
		fmt.Sprintf("Báo giá ở trạng thái %q, không thể xử lý", current),
		fmt.Sprintf("quote is in status %q and cannot be processed", current)).
		withDetails(map[string]interface{}{"current": current})
}

func InvalidServiceRequestStatus(current string) *Error {
	return newError(KindInvalidServiceRequestStatus, http.StatusConflict,
		fmt.Sprintf("Yêu cầu dịch vụ ở trạng thái %q, không nhận báo giá", current),
		fmt.Sprintf("service request is in status %q and does not accept this operation", current)).
		withDetails(map[string]interface{}{"current": current})
}

func InvalidReason(minLen int) *Error {
	return newError(KindInvalidReason, http.StatusBadRequest,
		fmt.Sprintf("Lý do phải có ít nhất %d ký tự", minLen),
		fmt.Sprintf("reason must be at least %d characters", minLen)).
		withDetails(map[string]interface{}{"min_length": minLen})
}

func RateLimited(retryAfter time.Duration) *Error {
	return newError(KindRateLimited, http.StatusTooManyRequests,
		"Quá nhiều yêu cầu, vui lòng thử lại sau", "too many requests, retry later").
		withDetails(map[string]interface{}{"retry_after_ms": retryAfter.Milliseconds()})
}

func Validation(msg string) *Error {
	return newError(KindValidation, http.StatusBadRequest,
		"Dữ liệu không hợp lệ: "+msg, "invalid input: "+msg)
}

func Internal(err error) *Error {
	e := newError(KindInternal, http.StatusInternalServerError,
		"Lỗi hệ thống", "internal error")
	e.Err = err
	return e
}
