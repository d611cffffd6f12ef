package sigchan

// Chan 是一个非阻塞的信号 channel
// 只通知事件发生，不传递数据；channel 满时信号被合并
type Chan struct {
	c chan struct{}
}

// New 创建新的信号 channel
func New(bufferSize int) *Chan {
	return &Chan{
		c: make(chan struct{}, bufferSize),
	}
}

// Emit 发送信号（非阻塞，满则丢弃）
func (c *Chan) Emit() {
	select {
	case c.c <- struct{}{}:
	default:
	}
}

// C 返回内部 channel（用于 select）
func (c *Chan) C() <-chan struct{} {
	return c.c
}
