/*
Package distributed provides cluster coordination and distributed operations for ObjectFS.

# Overview

The distributed package implements a distributed system layer that enables ObjectFS to run
in a clustered configuration with data replication, load balancing, and consensus. It provides
the coordination mechanisms needed for multi-node deployments.

⚠️ WARNING: This package has known race conditions and is currently under active development.
Integration tests pending Sprint 4 (LocalStack). Not recommended for production use yet.

Architecture

	┌──────────────────────────────────────────────────┐
	│           Coordinator (Operation Manager)         │
	│  - Executes distributed operations                │
	│  - Enforces consistency levels                    │
	│  - Manages operation lifecycle                    │
	└────────┬──────────────────┬──────────────────────┘
	         │                  │
	    ┌────▼─────┐      ┌─────▼──────┐
	    │  Cluster │      │    Load    │
	    │  Manager │      │  Balancer  │
	    │          │      │            │
	    │ - Nodes  │      │ - Routing  │
	    │ - Health │      │ - Strategy │
	    └────┬─────┘      └─────┬──────┘
	         │                  │
	    ┌────▼──────────────────▼────┐
	    │    Gossip Protocol          │
	    │  - Node discovery           │
	    │  - State propagation        │
	    │  - Failure detection        │
	    └────────────────────────────┘

# Core Components

1. ClusterManager: Manages cluster membership, node health, and leader election
2. Coordinator: Executes distributed operations with configurable consistency
3. GossipProtocol: Handles node-to-node communication and state synchronization
4. ConsensusEngine: Implements consensus for critical cluster decisions

# Consistency Levels

ObjectFS supports three consistency levels for distributed operations:

Eventual Consistency (Default):
- Fastest performance
- Operations complete on one node and replicate asynchronously
- Suitable for: cache operations, logs, non-critical data

	op := &distributed.DistributedOperation{
		Type:        distributed.OpTypePut,
		Key:         "cache/data.bin",
		Data:        data,
		Consistency: distributed.ConsistencyEventual,
	}
	result, err := coordinator.ExecuteOperation(ctx, op)

Session Consistency:
- Moderate performance
- Read-your-writes guarantee within a session
- Suitable for: user sessions, temporary data

	op := &distributed.DistributedOperation{
		Type:        distributed.OpTypeGet,
		Key:         "session/user123",
		Consistency: distributed.ConsistencySession,
	}

Strong Consistency:
- Slowest performance (requires majority consensus)
- Linearizable operations across cluster
- Suitable for: configuration, metadata, critical state

	op := &distributed.DistributedOperation{
		Type:        distributed.OpTypePut,
		Key:         "config/settings.yaml",
		Data:        configData,
		Consistency: distributed.ConsistencyStrong,
	}

# Setting Up a Cluster

Basic cluster configuration:

	config := &distributed.ClusterConfig{
		Enabled:           true,
		NodeID:            "node-1",
		ListenAddr:        "0.0.0.0:8080",
		AdvertiseAddr:     "192.168.1.10:8080",
		SeedNodes:         []string{
			"192.168.1.11:8080",
			"192.168.1.12:8080",
		},
		ReplicationFactor: 3,
		ConsistencyLevel:  "eventual",
	}

	// Create cluster manager
	cluster, err := distributed.NewClusterManager(config)
	if err != nil {
		log.Fatal(err)
	}

	// Start cluster
	if err := cluster.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer cluster.Stop()

	// Create coordinator
	coordinator, err := distributed.NewCoordinator(cluster, config)
	if err != nil {
		log.Fatal(err)
	}

	if err := coordinator.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer coordinator.Stop()

# Distributed Operations

Execute operations across the cluster:

	// Write operation
	writeOp := &distributed.DistributedOperation{
		ID:          "write-123",
		Type:        distributed.OpTypePut,
		Key:         "objects/file.dat",
		Data:        fileData,
		Consistency: distributed.ConsistencyStrong,
		Timeout:     30 * time.Second,
		Retries:     3,
	}
	result, err := coordinator.ExecuteOperation(ctx, writeOp)
	if err != nil {
		log.Printf("Write failed: %v", err)
	}

	// Read operation
	readOp := &distributed.DistributedOperation{
		Type:        distributed.OpTypeGet,
		Key:         "objects/file.dat",
		Consistency: distributed.ConsistencyEventual,
	}
	result, err = coordinator.ExecuteOperation(ctx, readOp)
	if result.Success {
		data := result.Data
		// Use data
	}

# Load Balancing Strategies

The LoadBalancer supports multiple strategies for distributing operations:

Round Robin (StrategyRoundRobin):
- Simple, fair distribution
- No state required
- Good for uniform workloads

Least Load (StrategyLeastLoad):
- Selects nodes with lowest current load
- Balances uneven workloads
- Default strategy

Consistent Hash (StrategyConsistentHash):
- Maps keys to specific nodes
- Minimizes rebalancing on node changes
- Good for cache distribution

Latency Based (StrategyLatencyBased):
- Routes to fastest responding nodes
- Adapts to network conditions
- Requires latency tracking

# Cache Replication

The CacheReplicator handles asynchronous cache synchronization:

	// Replication happens automatically for write operations
	// with replication factor > 1

	// Monitor replication status
	stats := coordinator.GetStats()
	replicationStats := stats["replication"].(distributed.ReplicationStats)
	log.Printf("Replicated: %d bytes, Active: %d tasks",
		replicationStats.BytesReplicated,
		replicationStats.ActiveTasks)

# Cluster Health Monitoring

Check cluster health and node status:

	// Get cluster state
	nodes := cluster.GetNodes()
	for nodeID, node := range nodes {
		log.Printf("Node %s: Status=%s, Load=%.2f",
			nodeID, node.Status, node.Load)
	}

	// Get leader
	leader := cluster.GetLeader()
	log.Printf("Current leader: %s", leader)

	// Check if this node is leader
	if cluster.IsLeader() {
		// Perform leader-only operations
	}

Failure Detection & Recovery

The gossip protocol implements:

1. Heartbeat-based failure detection
2. Automatic leader re-election
3. Node state propagation
4. Split-brain prevention (via quorum)

Failure Detection:

	// Nodes automatically detect failures via gossip protocol
	// Failed nodes are marked as NodeStatusSuspect or NodeStatusDead

	// Subscribe to node status changes
	// (Implementation-specific, depends on cluster manager)

Leader Election:

	// Automatic leader election using Raft-inspired consensus
	// Leader handles:
	// - Cluster-wide operations
	// - Configuration changes
	// - Quorum decisions

# Configuration

ClusterConfig controls all distributed system behavior:

	type ClusterConfig struct {
		Enabled           bool              // Enable clustering
		NodeID            string            // Unique node identifier
		ListenAddr        string            // Bind address
		AdvertiseAddr     string            // Advertised address
		SeedNodes         []string          // Bootstrap nodes
		ReplicationFactor int               // Data replication count
		ConsistencyLevel  string            // Default consistency
		GossipInterval    time.Duration     // Gossip frequency
		FailureTimeout    time.Duration     // Failure detection timeout
		ElectionTimeout   time.Duration     // Leader election timeout
		OperationTimeout  time.Duration     // Default op timeout
		RetryAttempts     int               // Default retry count
	}

# Best Practices

1. Consistency Trade-offs
Choose the appropriate consistency level for each operation. Don't use strong
consistency for operations that don't require it.

2. Replication Factor
Set replication factor based on:
- Data criticality (higher for important data)
- Cluster size (typically 3 for small clusters)
- Read/write ratio (higher for read-heavy workloads)

3. Network Partitions
Plan for network partitions:
- Use quorum-based operations
- Implement proper timeout handling
- Design for eventual consistency where possible

4. Monitoring
Monitor cluster health metrics:
- Node availability
- Replication lag
- Operation latency
- Load imbalance

5. Testing
Test failure scenarios:
- Single node failure
- Network partition
- Leader failure
- Cascading failures

Known Issues & Limitations

⚠️ Race Conditions: The distributed package currently has race conditions that cause
test timeouts. These are being addressed in Sprint 4 with comprehensive integration
tests using LocalStack.

⚠️ Incomplete Features:
- Consensus engine is partially implemented
- Gossip protocol needs additional testing
- Split-brain protection needs validation

⚠️ Performance: Not yet optimized for high-throughput environments. Benchmarking
and optimization planned for post-v0.2.0.

# Future Enhancements

Planned for future releases:
- SWIM-based gossip protocol
- Multi-Raft for better scalability
- Cross-datacenter replication
- Dynamic sharding
- Consistent snapshots

Example: Complete Cluster Setup

	package main

	import (
		"context"
		"log"
		"time"

		"github.com/objectfs/objectfs/internal/distributed"
	)

	func main() {
		config := &distributed.ClusterConfig{
			Enabled:           true,
			NodeID:            "node-primary",
			ListenAddr:        "0.0.0.0:8080",
			AdvertiseAddr:     "192.168.1.10:8080",
			SeedNodes:         []string{"192.168.1.11:8080"},
			ReplicationFactor: 3,
			ConsistencyLevel:  "eventual",
			GossipInterval:    time.Second,
			FailureTimeout:    30 * time.Second,
		}

		// Initialize cluster
		cluster, err := distributed.NewClusterManager(config)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		if err := cluster.Start(ctx); err != nil {
			log.Fatal(err)
		}
		defer cluster.Stop()

		// Initialize coordinator
		coordinator, err := distributed.NewCoordinator(cluster, config)
		if err != nil {
			log.Fatal(err)
		}

		if err := coordinator.Start(ctx); err != nil {
			log.Fatal(err)
		}
		defer coordinator.Stop()

		// Execute distributed operation
		op := &distributed.DistributedOperation{
			Type:        distributed.OpTypePut,
			Key:         "test-key",
			Data:        []byte("test-value"),
			Consistency: distributed.ConsistencyStrong,
		}

		result, err := coordinator.ExecuteOperation(ctx, op)
		if err != nil {
			log.Fatal(err)
		}

		if result.Success {
			log.Printf("Operation succeeded on %d nodes",
				len(result.NodeResults))
		}
	}

# See Also

- internal/health: Health monitoring for cluster nodes
- internal/metrics: Metrics collection for distributed operations
- internal/circuit: Circuit breakers for fault tolerance

For distributed systems theory and best practices, see:
- https://en.wikipedia.org/wiki/CAP_theorem
- https://martin.kleppmann.com/2015/05/11/please-stop-calling-databases-cp-or-ap.html
*/
package distributed
