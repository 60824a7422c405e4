package continuation

// Compose
// 组合后续动作
//
// 返回一个按顺序执行 actions 的函数，在调用者所在的协程中执行。
// 某个动作 panic 时，后续动作不会执行，panic 原样向上传递。
func Compose(actions ...func()) func() {
	return func() {
		for _, action := range actions {
			if action == nil {
				continue
			}
			action()
		}
	}
}
