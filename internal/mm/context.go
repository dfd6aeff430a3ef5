/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mm

// EntryFunc is the code a context starts executing
// EntryFunc 是上下文开始执行的代码
type EntryFunc func(arg any)

// Context is an execution context bound to a stack and an address space
// Context 是绑定到栈和地址空间的执行上下文
type Context struct {
	entry     EntryFunc
	arg       any
	stack     *Stack
	addrSpace Handle
}

// BuildContext sets up a context that runs entry(arg) on stack inside addrSpace
// BuildContext 构建在 addrSpace 中、以 stack 为栈运行 entry(arg) 的上下文
func BuildContext(entry EntryFunc, arg any, stack *Stack, addrSpace Handle) *Context {
	return &Context{
		entry:     entry,
		arg:       arg,
		stack:     stack,
		addrSpace: addrSpace,
	}
}

// Run starts executing the context
// Run 开始执行上下文
func (c *Context) Run() { c.entry(c.arg) }

// Stack returns the context's stack
// Stack 返回上下文的栈
func (c *Context) Stack() *Stack { return c.stack }

// AddressSpace returns the address space the context runs in
// AddressSpace 返回上下文运行所在的地址空间
func (c *Context) AddressSpace() Handle { return c.addrSpace }
